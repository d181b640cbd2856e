package api

import "github.com/gin-gonic/gin"

// Controller is the gin group a Module registers its endpoints on.
// The upper-case verbs require an authenticated user; PUBLIC_* do not.
type Controller struct {
	Group *gin.RouterGroup
}

func (c *Controller) GET(path string, h HandlerFuncWithAuth) {
	c.Group.GET(path, ResolveEndpointWithAuth(h))
}

func (c *Controller) POST(path string, h HandlerFuncWithAuth) {
	c.Group.POST(path, ResolveEndpointWithAuth(h))
}

func (c *Controller) PUT(path string, h HandlerFuncWithAuth) {
	c.Group.PUT(path, ResolveEndpointWithAuth(h))
}

func (c *Controller) DELETE(path string, h HandlerFuncWithAuth) {
	c.Group.DELETE(path, ResolveEndpointWithAuth(h))
}

func (c *Controller) PUBLIC_GET(path string, h HandlerFunc, mw ...gin.HandlerFunc) {
	c.Group.GET(path, chain(mw, ResolveEndpoint(h))...)
}

func (c *Controller) PUBLIC_POST(path string, h HandlerFunc, mw ...gin.HandlerFunc) {
	c.Group.POST(path, chain(mw, ResolveEndpoint(h))...)
}

// chain copies mw so modules can share one middleware slice between routes.
func chain(mw []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(mw)+1)
	out = append(out, mw...)
	return append(out, h)
}
