package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/mfirdausali/wif-fin-sub004/internal/interfaces/http/router"
)

// PDFRoutes creates the route group for document rendering. Legacy paths
// such as /pdf/generate-invoice resolve through the same parameter route.
func PDFRoutes(handler *PDFHandler, middleware ...gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("pdf", "/pdf")
	group.Use(middleware...)

	group.GET("/document-types", handler.DocumentTypes)
	group.POST("/:documentType", handler.Render)
	group.POST("/:documentType/preview", handler.Preview)

	return group
}
