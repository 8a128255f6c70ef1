package config_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aymanh23/searchv2/config"
)

var _ = Describe("CustomTool", func() {

	Describe("parsing", func() {
		It("parses a tool implementing plugins.http.get with inputs and dynamic fields", func() {
			hcl := minimalVarsHCL() + minimalModelHCL() + `
tool "condition_lookup" {
  implements  = plugins.http.get
  description = "Look up a condition summary"
  inputs {
    field "condition" {
      type        = "string"
      description = "Condition name"
      required    = true
    }
  }
  url = "https://medlineplus.gov/search?query=${inputs.condition}"
}
`
			_, f := writeFixture("config.hcl", hcl)
			cfg, err := config.LoadFile(f)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.CustomTools).To(HaveLen(1))
			Expect(cfg.CustomTools[0].Name).To(Equal("condition_lookup"))
			Expect(cfg.CustomTools[0].Implements).To(Equal("plugins.http.get"))
			Expect(cfg.CustomTools[0].Description).To(Equal("Look up a condition summary"))
			Expect(cfg.CustomTools[0].Inputs).NotTo(BeNil())
			Expect(cfg.CustomTools[0].Inputs.Fields).To(HaveLen(1))
			Expect(cfg.CustomTools[0].Inputs.Fields[0].Name).To(Equal("condition"))
			Expect(cfg.CustomTools[0].Inputs.Fields[0].Type).To(Equal("string"))
			Expect(cfg.CustomTools[0].Inputs.Fields[0].Required).To(BeTrue())
			Expect(cfg.CustomTools[0].FieldExprs).To(HaveKey("url"))
		})

		It("parses a tool with http.post and body field", func() {
			hcl := minimalVarsHCL() + minimalModelHCL() + `
tool "submit_referral" {
  implements  = plugins.http.post
  description = "Submit a referral request"
  inputs {
    field "patient" {
      type     = "string"
      required = true
    }
  }
  url  = "https://example.com/referrals"
  body = {
    patient = inputs.patient
    urgent  = false
  }
}
`
			_, f := writeFixture("config.hcl", hcl)
			cfg, err := config.LoadFile(f)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.CustomTools[0].Implements).To(Equal("plugins.http.post"))
			Expect(cfg.CustomTools[0].FieldExprs).To(HaveKey("url"))
			Expect(cfg.CustomTools[0].FieldExprs).To(HaveKey("body"))
		})

		It("parses a tool with no inputs block", func() {
			hcl := minimalVarsHCL() + minimalModelHCL() + `
tool "demo_scan" {
  implements = plugins.medical.symptom_scan
  text       = "I have a headache and a sore throat"
}
`
			_, f := writeFixture("config.hcl", hcl)
			cfg, err := config.LoadFile(f)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.CustomTools[0].Inputs).To(BeNil())
			Expect(cfg.CustomTools[0].FieldExprs).To(HaveKey("text"))
		})

		It("parses multiple custom tools", func() {
			hcl := minimalVarsHCL() + minimalModelHCL() + `
tool "tool_a" {
  implements = plugins.http.get
  url = "https://example.com/a"
}
tool "tool_b" {
  implements = plugins.http.get
  url = "https://example.com/b"
}
`
			_, f := writeFixture("config.hcl", hcl)
			cfg, err := config.LoadFile(f)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.CustomTools).To(HaveLen(2))
		})
	})

	Describe("Validate", func() {
		It("accepts tool with plugins.* implements format", func() {
			t := config.CustomTool{Name: "mytool", Implements: "plugins.http.get"}
			Expect(t.Validate()).To(Succeed())
		})

		It("rejects tool without implements", func() {
			t := config.CustomTool{Name: "mytool", Implements: ""}
			err := t.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("implements is required"))
		})

		It("rejects tool with non-plugins.* implements format", func() {
			t := config.CustomTool{Name: "mytool", Implements: "symptom_scan"}
			err := t.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("plugins.{namespace}.{tool} format"))
		})

		It("rejects tool with legacy format implements", func() {
			t := config.CustomTool{Name: "mytool", Implements: "http_get"}
			err := t.Validate()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("IsPluginTool / GetPluginToolRef", func() {
		It("returns true for plugins.* implements", func() {
			t := config.CustomTool{Implements: "plugins.medical.symptom_scan"}
			Expect(t.IsPluginTool()).To(BeTrue())
			pName, tName, ok := t.GetPluginToolRef()
			Expect(ok).To(BeTrue())
			Expect(pName).To(Equal("medical"))
			Expect(tName).To(Equal("symptom_scan"))
		})

		It("parses http plugin tool ref correctly", func() {
			t := config.CustomTool{Implements: "plugins.http.get"}
			pName, tName, ok := t.GetPluginToolRef()
			Expect(ok).To(BeTrue())
			Expect(pName).To(Equal("http"))
			Expect(tName).To(Equal("get"))
		})

		It("returns false for non-plugins implements", func() {
			t := config.CustomTool{Implements: "some_tool"}
			Expect(t.IsPluginTool()).To(BeFalse())
			_, _, ok := t.GetPluginToolRef()
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Config.Validate rejects internal tool name conflict", func() {
		It("rejects a custom tool named 'symptom_scan'", func() {
			cfg := &config.Config{
				CustomTools: []config.CustomTool{
					{Name: "symptom_scan", Implements: "plugins.http.get"},
				},
			}
			err := cfg.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("conflicts with internal tool"))
		})
	})

	Describe("agent references custom tools", func() {
		It("validates tools.* references to defined custom tools", func() {
			hcl := minimalVarsHCL() + minimalModelHCL() + `
tool "condition_lookup" {
  implements  = plugins.http.get
  description = "Condition lookup"
  inputs {
    field "condition" {
      type     = "string"
      required = true
    }
  }
  url = "https://medlineplus.gov/search?query=${inputs.condition}"
}
agent "tooluser" {
  model       = models.anthropic.claude_sonnet_4
  personality = "Test"
  role        = "Tester"
  tools       = [plugins.medical.symptom_scan, tools.condition_lookup]
}
`
			_, f := writeFixture("config.hcl", hcl)
			cfg, err := config.LoadAndValidate(f)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Agents[0].Tools).To(ContainElement("tools.condition_lookup"))
		})
	})
})
