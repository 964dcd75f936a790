package config

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	var (
		tempDir    string
		configFile string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "auditpipeline-config-test")
		Expect(err).NotTo(HaveOccurred())
		configFile = filepath.Join(tempDir, "config.yaml")
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
		for _, v := range []string{"OCR_PROVIDER", "INTERPRETER_PROVIDER", "ENABLE_RAW_OCR_INSIGHTS", "LOG_LEVEL", "TEMPLATE_SSOT_MODE"} {
			os.Unsetenv(v)
		}
	})

	Describe("Load", func() {
		Context("when config file exists with valid content", func() {
			BeforeEach(func() {
				validConfig := `
ocr:
  provider: "mistral"
  endpoint: "https://ocr.example.com"
  timeout: "45s"

interpreter:
  provider: "gemini"
  model: "gemini-2.0-flash"

registry:
  ssotMode: "permissive"

logging:
  level: "debug"
  format: "text"
`
				Expect(os.WriteFile(configFile, []byte(validConfig), 0644)).To(Succeed())
			})

			It("loads configuration successfully", func() {
				cfg, err := Load(configFile)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.OCR.Provider).To(Equal("mistral"))
				Expect(cfg.OCR.Endpoint).To(Equal("https://ocr.example.com"))
				Expect(cfg.OCR.Timeout).To(Equal(45 * time.Second))
				Expect(cfg.Interpreter.Provider).To(Equal("gemini"))
				Expect(cfg.Registry.SSOTMode).To(Equal("permissive"))
				Expect(cfg.Logging.Level).To(Equal("debug"))
			})
		})

		Context("when config file has minimal content", func() {
			BeforeEach(func() {
				Expect(os.WriteFile(configFile, []byte(`ocr:
  provider: "mock"
`), 0644)).To(Succeed())
			})

			It("fills in defaults for everything else", func() {
				cfg, err := Load(configFile)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Interpreter.Provider).To(Equal("mock"))
				Expect(cfg.Registry.SSOTMode).To(Equal("strict"))
				Expect(cfg.Logging.Format).To(Equal("json"))
				Expect(cfg.Calibration.Level).To(Equal("standard"))
			})
		})

		Context("when config file does not exist", func() {
			It("returns an error", func() {
				_, err := Load(filepath.Join(tempDir, "missing.yaml"))
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to read config file"))
			})
		})

		Context("when config file has invalid YAML", func() {
			BeforeEach(func() {
				Expect(os.WriteFile(configFile, []byte("ocr:\n  provider: [\n"), 0644)).To(Succeed())
			})

			It("returns an error", func() {
				_, err := Load(configFile)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to parse config file"))
			})
		})

		Context("when a boundary environment variable is set", func() {
			BeforeEach(func() {
				Expect(os.WriteFile(configFile, []byte(`ocr:
  provider: "mock"
`), 0644)).To(Succeed())
				os.Setenv("OCR_PROVIDER", "mistral")
				os.Setenv("ENABLE_RAW_OCR_INSIGHTS", "true")
				os.Setenv("TEMPLATE_SSOT_MODE", "permissive")
			})

			It("overrides the YAML value", func() {
				cfg, err := Load(configFile)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.OCR.Provider).To(Equal("mistral"))
				Expect(cfg.Interpreter.AllowRawOCRInsights).To(BeTrue())
				Expect(cfg.Registry.SSOTMode).To(Equal("permissive"))
			})
		})

		Context("when a struct-tag validated field is out of range", func() {
			BeforeEach(func() {
				Expect(os.WriteFile(configFile, []byte(`ocr:
  provider: "not-a-real-provider"
`), 0644)).To(Succeed())
			})

			It("returns a validation error", func() {
				_, err := Load(configFile)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("config validation failed"))
			})
		})
	})
})
