// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package cli_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/onsi/gomega/gexec"
)

const worldConfig = `
log:
  level: warn
  format: text
plugins:
  dirs: [%PLUGINS%]
  timeout: 10s
world:
  players:
    - name: Alice
      roles: [BARD]
      timezone: America/New_York
      connected: true
    - name: Bob
      roles: [GUEST]
      connected: true
  extensions:
    - id: ext-echo
      name: Echo
      roles: [ADEPT]
`

func replaceAll(s, old, replacement string) string {
	return strings.ReplaceAll(s, old, replacement)
}

// writeConfig writes a host config using the suite's plugin directory plus
// any extra YAML.
func writeConfig(extra string) string {
	dir := GinkgoT().TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := replaceAll(worldConfig, "%PLUGINS%", env.pluginsDir) + extra
	Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
	return path
}

func run(args ...string) *gexec.Session {
	cmd := exec.Command(env.hostBin, args...) //nolint:gosec // test binary built by the suite
	cmd.Env = append(os.Environ(), "XDG_CONFIG_HOME="+GinkgoT().TempDir())
	session, err := gexec.Start(cmd, GinkgoWriter, GinkgoWriter)
	Expect(err).NotTo(HaveOccurred())
	Eventually(session, 30*time.Second).Should(gexec.Exit())
	return session
}

var _ = Describe("plugincall call", func() {
	var config string

	BeforeEach(func() {
		config = writeConfig("")
	})

	It("returns the plugin's result", func() {
		session := run("--config", config, "call", "--as", "Alice", "$echo", "hello", "world")
		Expect(session).To(gexec.Exit(0))
		Expect(string(session.Out.Contents())).To(Equal("hello world\n"))
	})

	It("lets the plugin read the caller through the gateway", func() {
		session := run("--config", config, "call", "--as", "Alice", "$whoami")
		Expect(session).To(gexec.Exit(0))
		Expect(string(session.Out.Contents())).To(Equal("Alice (America/New_York)\n"))
	})

	It("delivers messages the plugin sends to the caller", func() {
		session := run("--config", config, "call", "--as", "Alice", "$profile", "Alice")
		Expect(session).To(gexec.Exit(0))
		out := string(session.Out.Contents())
		Expect(out).To(ContainSubstring("Profile"))
		Expect(out).To(ContainSubstring("Player: Alice"))
		Expect(out).To(ContainSubstring("Roles:  BARD"))
	})

	It("reports a missing player from the plugin", func() {
		session := run("--config", config, "call", "--as", "Alice", "$profile", "Nobody")
		Expect(session).To(gexec.Exit(1))
		Expect(string(session.Err.Contents())).To(ContainSubstring("Nobody"))
	})

	It("refuses callers without a permitted role", func() {
		session := run("--config", config, "call", "--as", "Bob", "$profile", "Alice")
		Expect(session).To(gexec.Exit(1))
	})

	It("runs built-in commands as well as plugin calls", func() {
		session := run("--config", config, "call", "--as", "Alice", "--line", "ROLE GET nobody")
		Expect(session).To(gexec.Exit(1))
		Expect(string(session.Err.Contents())).To(ContainSubstring("Player nobody not found"))
	})
})

var _ = Describe("plugincall validate", func() {
	It("accepts the sample document", func() {
		session := run("validate", "../../../plugins/echo/echo.yaml")
		Expect(session).To(gexec.Exit(0))
		Expect(string(session.Out.Contents())).To(ContainSubstring("extension ext-echo"))
	})
})

var _ = Describe("PostgreSQL attribute storage", func() {
	It("migrates the schema and stores seeded attributes", func() {
		session := run("migrate", "up", "--database-url", env.connStr)
		Expect(session).To(gexec.Exit(0))

		session = run("migrate", "status", "--database-url", env.connStr)
		Expect(session).To(gexec.Exit(0))
		Expect(string(session.Err.Contents())).To(ContainSubstring("Pending migrations: 0"))

		config := writeConfig(`
  things:
    - name: lamp
      attrs: ["color=red"]
database:
  url: ` + env.connStr + `
  auto_migrate: true
`)
		session = run("--config", config, "call", "--as", "Alice", "$echo", "stored")
		Expect(session).To(gexec.Exit(0))
		Expect(string(session.Out.Contents())).To(Equal("stored\n"))
	})
})
