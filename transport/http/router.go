package http

import (
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flarexio/ragblade"

	mcpE "github.com/flarexio/ragblade/mcp"
)

func AddRouters(r *gin.Engine, endpoints *ragblade.EndpointSet) {
	// RESTful API routes
	api := r.Group("/api")
	{
		api.POST("/answer", AnswerHandler(endpoints.Answer))
		api.POST("/documents", IngestHandler(endpoints.Ingest))
		api.POST("/documents/batch", IngestBatchHandler(endpoints.IngestBatch))
		api.GET("/search", SearchHandler(endpoints.Retrieve))
	}
}

func AddStreamableRouters(r *gin.Engine, endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) {
	mcp := r.Group("/mcp")
	{
		mcp.POST("/", MCPStreamableHandler(endpoints))
	}
}

func AddMetricsRouters(r *gin.Engine, gatherer prometheus.Gatherer) {
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
