package registry

import (
	"fmt"
	"sort"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

// standardRegionNames is the conventional region-name vocabulary; names
// outside this set are warned on, not rejected.
var standardRegionNames = map[string]bool{
	"signature": true, "date": true, "serialNumber": true, "technician": true,
	"workDescription": true, "parts": true, "timeIn": true, "timeOut": true,
	"customer": true, "jobNumber": true, "jobReference": true, "assetId": true,
	"engineerSignOff": true,
}

// ROIViolationKind distinguishes a hard rejection from a soft warning.
type ROIViolationKind string

const (
	ROIReject ROIViolationKind = "reject"
	ROIWarn   ROIViolationKind = "warn"
)

// ROIViolation is one ROI validation finding.
type ROIViolation struct {
	Kind    ROIViolationKind
	Field   string
	Message string
}

// ValidateROIConfig checks every region: rejects
// out-of-bounds/zero-area/invalid-page regions; warns on near-boundary
// overflow, duplicate names, overlapping same-page regions, and
// non-standard names.
func ValidateROIConfig(cfg *audit.RoiConfig) []ROIViolation {
	if cfg == nil {
		return nil
	}

	var violations []ROIViolation
	seenNames := make(map[string]bool)
	type placed struct {
		field  string
		region audit.ROIRegion
	}
	var byPage = make(map[int][]placed)

	fields := sortedFieldKeys(cfg.Regions)
	for _, field := range fields {
		for _, r := range cfg.Regions[field] {
			if r.Page < 1 {
				violations = append(violations, ROIViolation{ROIReject, field, fmt.Sprintf("region %q: page must be >= 1, got %d", r.Name, r.Page)})
				continue
			}
			if r.X < 0 || r.X > 1 || r.Y < 0 || r.Y > 1 || r.W < 0 || r.W > 1 || r.H < 0 || r.H > 1 {
				violations = append(violations, ROIViolation{ROIReject, field, fmt.Sprintf("region %q: coordinates must be in [0,1]", r.Name)})
				continue
			}
			if r.W == 0 || r.H == 0 {
				violations = append(violations, ROIViolation{ROIReject, field, fmt.Sprintf("region %q: zero area", r.Name)})
				continue
			}
			if r.X+r.W > 1.001 {
				violations = append(violations, ROIViolation{ROIWarn, field, fmt.Sprintf("region %q: x+w exceeds page bounds", r.Name)})
			}
			if r.Y+r.H > 1.001 {
				violations = append(violations, ROIViolation{ROIWarn, field, fmt.Sprintf("region %q: y+h exceeds page bounds", r.Name)})
			}
			if seenNames[r.Name] {
				violations = append(violations, ROIViolation{ROIWarn, field, fmt.Sprintf("region %q: duplicate name", r.Name)})
			}
			seenNames[r.Name] = true
			if !standardRegionNames[r.Name] {
				violations = append(violations, ROIViolation{ROIWarn, field, fmt.Sprintf("region %q: non-standard region name", r.Name)})
			}

			for _, other := range byPage[r.Page] {
				if regionsOverlap(other.region, r) {
					violations = append(violations, ROIViolation{ROIWarn, field, fmt.Sprintf("region %q overlaps %q on page %d", r.Name, other.region.Name, r.Page)})
				}
			}
			byPage[r.Page] = append(byPage[r.Page], placed{field: field, region: r})
		}
	}
	return violations
}

func sortedFieldKeys(m map[string][]audit.ROIRegion) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func regionsOverlap(a, b audit.ROIRegion) bool {
	return a.X < b.X+b.W && a.X+a.W > b.X && a.Y < b.Y+b.H && a.Y+a.H > b.Y
}

// HasRejections reports whether any violation is a hard rejection.
func HasRejections(violations []ROIViolation) bool {
	for _, v := range violations {
		if v.Kind == ROIReject {
			return true
		}
	}
	return false
}
