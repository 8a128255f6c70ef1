package config_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aymanh23/searchv2/config"
)

var _ = Describe("LoadAndValidate (end-to-end)", func() {

	Context("single-file config", func() {
		It("succeeds with a complete valid config", func() {
			hcl := fullBaseHCL() + `
search {
  provider = "serper"
  api_key  = vars.test_api_key
}

storage {
  backend = "memory"
}

server {
  listen = ":9000"
}
`
			dir, _ := writeFixture("all.hcl", hcl)
			cfg, err := config.LoadAndValidate(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Variables).To(HaveLen(1))
			Expect(cfg.Models).To(HaveLen(1))
			Expect(cfg.Agents).To(HaveLen(1))
			Expect(cfg.Search).NotTo(BeNil())
			Expect(cfg.Storage).NotTo(BeNil())
			Expect(cfg.Server.Listen).To(Equal(":9000"))
		})
	})

	Context("multi-file directory", func() {
		It("succeeds loading separate files", func() {
			dir := writeFixtures(map[string]string{
				"variables.hcl": minimalVarsHCL(),
				"models.hcl":    minimalModelHCL(),
				"agents.hcl":    minimalAgentHCL(),
				"search.hcl": `
search {
  provider = "serper"
  api_key  = vars.test_api_key
}

storage {
  backend = "sqlite"
  path    = "intake.db"
}
`,
			})

			cfg, err := config.LoadAndValidate(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Variables).To(HaveLen(1))
			Expect(cfg.Models).To(HaveLen(1))
			Expect(cfg.Agents).To(HaveLen(1))
			Expect(cfg.Search.APIKey).To(Equal("test-key-123"))
			Expect(cfg.Storage.Path).To(Equal("intake.db"))
		})
	})

	Context("variable validation errors", func() {
		It("rejects a secret variable with a default", func() {
			hcl := minimalVarsHCL() + `
variable "bad_secret" {
  secret  = true
  default = "oops"
}
` + minimalModelHCL() + minimalAgentHCL()

			dir, _ := writeFixture("config.hcl", hcl)
			_, err := config.LoadAndValidate(dir)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("secret"))
			Expect(err.Error()).To(ContainSubstring("bad_secret"))
		})
	})

	Context("model validation errors", func() {
		It("rejects an unsupported provider", func() {
			hcl := minimalVarsHCL() + `
model "bad" {
  provider       = "llama"
  allowed_models = ["llama_3"]
  api_key        = vars.test_api_key
}

agent "test_agent" {
  model       = models.bad.llama_3
  personality = "Helpful"
  role        = "Test"
  tools       = [plugins.medical.symptom_scan]
}
`
			dir, _ := writeFixture("config.hcl", hcl)
			_, err := config.LoadAndValidate(dir)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("Unsupported provider"))
		})
	})

	Context("search validation errors", func() {
		It("rejects a serper provider without an api_key", func() {
			hcl := fullBaseHCL() + `
search {
  provider = "serper"
}
`
			dir, _ := writeFixture("config.hcl", hcl)
			_, err := config.LoadAndValidate(dir)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("api_key is required"))
		})

		It("rejects an unknown search provider", func() {
			hcl := fullBaseHCL() + `
search {
  provider = "duckduckgo"
}
`
			dir, _ := writeFixture("config.hcl", hcl)
			_, err := config.LoadAndValidate(dir)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unknown search provider"))
		})

		It("rejects an agent provider referencing an undefined agent", func() {
			hcl := fullBaseHCL() + `
search {
  provider = "agent"
  agent    = "ghost_agent"
}
`
			dir, _ := writeFixture("config.hcl", hcl)
			_, err := config.LoadAndValidate(dir)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("ghost_agent"))
		})

		It("accepts an agent provider referencing a defined agent", func() {
			hcl := fullBaseHCL() + `
search {
  provider = "agent"
  agent    = agents.test_agent
}
`
			dir, _ := writeFixture("config.hcl", hcl)
			cfg, err := config.LoadAndValidate(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Search.Agent).To(Equal("test_agent"))
		})
	})

	Context("storage validation errors", func() {
		It("rejects a postgres backend without a dsn", func() {
			hcl := fullBaseHCL() + `
storage {
  backend = "postgres"
}
`
			dir, _ := writeFixture("config.hcl", hcl)
			_, err := config.LoadAndValidate(dir)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("dsn is required"))
		})

		It("rejects an unknown storage backend", func() {
			hcl := fullBaseHCL() + `
storage {
  backend = "cassandra"
}
`
			dir, _ := writeFixture("config.hcl", hcl)
			_, err := config.LoadAndValidate(dir)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unknown backend"))
		})
	})

	Context("agent tool ref errors", func() {
		It("rejects an unknown tool reference in an agent", func() {
			hcl := minimalVarsHCL() + minimalModelHCL() + `
agent "bad_agent" {
  model       = models.anthropic.claude_sonnet_4
  personality = "Helpful"
  role        = "Test"
  tools       = [plugins.medical.symptom_scan]
}
`
			dir, _ := writeFixture("config.hcl", hcl)

			// Load succeeds but we'll manually add a bad tool ref and validate
			cfg, err := config.Load(dir)
			Expect(err).NotTo(HaveOccurred())
			// Inject a bad tool ref
			cfg.Agents[0].Tools = append(cfg.Agents[0].Tools, "plugins.nonexistent.tool")
			err = cfg.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unknown tool"))
			Expect(err.Error()).To(ContainSubstring("plugins.nonexistent.tool"))
		})
	})

	Context("plugin warnings with valid config", func() {
		It("succeeds but populates PluginWarnings", func() {
			hcl := minimalVarsHCL() + minimalModelHCL() + minimalAgentHCL() + `
plugin "missing_plugin" {
  source  = "github.com/fake/plugin"
  version = "v1.0.0"
}
`
			dir, _ := writeFixture("config.hcl", hcl)
			cfg, err := config.LoadAndValidate(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.PluginWarnings).NotTo(BeEmpty())
			Expect(cfg.PluginWarnings[0]).To(ContainSubstring("missing_plugin"))
		})
	})

	Context("custom tool internal name conflict", func() {
		It("rejects a custom tool named after an internal tool", func() {
			hcl := minimalVarsHCL() + minimalModelHCL() + `
tool "condition_lookup" {
  implements  = "plugins.http.get"
  description = "Condition lookup"
  url         = "https://medlineplus.gov/search"
}

agent "test_agent" {
  model       = models.anthropic.claude_sonnet_4
  personality = "Helpful"
  role        = "Test"
  tools       = [plugins.medical.symptom_scan, tools.condition_lookup]
}
`
			dir, _ := writeFixture("config.hcl", hcl)
			cfg, err := config.Load(dir)
			Expect(err).NotTo(HaveOccurred())

			// Rename the custom tool to conflict with an internal tool (symptom_scan, get, etc.)
			// Also update the agent's tool ref so it doesn't fail on "unknown tool" first
			cfg.CustomTools[0].Name = "symptom_scan"
			cfg.Agents[0].Tools = []string{"plugins.medical.symptom_scan", "tools.symptom_scan"}
			err = cfg.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("conflicts with internal tool"))
		})
	})

	Context("complete config with all block types", func() {
		It("handles vars, models, custom tools, agents, and singletons together", func() {
			hcl := minimalVarsHCL() + minimalModelHCL() + `
tool "condition_lookup" {
  implements  = "plugins.http.get"
  description = "Look up a condition summary"
  url         = "https://medlineplus.gov/search?query=flu"
}

agent "intake_assistant" {
  model       = models.anthropic.claude_sonnet_4
  personality = "Warm and methodical"
  role        = "Patient intake"
  tools       = [plugins.medical.symptom_scan, tools.condition_lookup]
}

search {
  provider    = "serper"
  api_key     = vars.test_api_key
  max_results = 3
}

storage {
  backend = "sqlite"
  path    = "data/intake.db"
}

server {
  listen          = "127.0.0.1:8790"
  allowed_origins = ["https://clinic.example.com"]
}
`
			dir, _ := writeFixture("config.hcl", hcl)
			cfg, err := config.LoadAndValidate(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Variables).To(HaveLen(1))
			Expect(cfg.Models).To(HaveLen(1))
			Expect(cfg.CustomTools).To(HaveLen(1))
			Expect(cfg.Agents).To(HaveLen(1))
			Expect(cfg.Search.MaxResults).To(Equal(3))
			Expect(cfg.Storage.Backend).To(Equal("sqlite"))
			Expect(cfg.Server.AllowedOrigins).To(ConsistOf("https://clinic.example.com"))
		})
	})
})
