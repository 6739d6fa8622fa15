package mcp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stacks/api/mcp"
	"github.com/papercomputeco/stacks/pkg/knowledge"
	stackslogger "github.com/papercomputeco/stacks/pkg/logger"
	testutils "github.com/papercomputeco/stacks/pkg/utils/test"
)

var _ = Describe("MCP Server", func() {
	var (
		server *mcp.Server
		remote *testutils.KnowledgeServer
		client *knowledge.Client
	)

	BeforeEach(func() {
		logger := stackslogger.Nop()
		remote = testutils.NewKnowledgeServer()

		var err error
		client, err = knowledge.NewClient(knowledge.Config{URL: remote.Start()}, logger)
		Expect(err).NotTo(HaveOccurred())

		server, err = mcp.NewServer(mcp.Config{
			Knowledge: client,
			Logger:    logger,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		remote.Close()
	})

	Describe("NewServer", func() {
		It("returns an error when knowledge client is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Logger: stackslogger.Nop(),
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("knowledge client is required"))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Knowledge: client,
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("logger is required"))
		})

		It("creates a server with valid config", func() {
			Expect(server).NotTo(BeNil())
		})

		It("returns an HTTP handler", func() {
			Expect(server.Handler()).NotTo(BeNil())
		})
	})
})
