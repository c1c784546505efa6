package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
)

// apiOp is one documented operation; Responses maps status code to description.
type apiOp struct {
	Method    string
	Path      string
	Summary   string
	Responses map[string]string
}

var apiOps = []apiOp{
	{"post", "/auth/register", "Create an account and sign in", map[string]string{
		"201": "account created, session cookie set", "400": "validation failed",
		"409": "email in use or submission pending", "502": "identity provider error", "503": "profile store unavailable"}},
	{"get", "/auth/federated/login", "Start federated sign-in", map[string]string{"302": "redirect to identity provider"}},
	{"get", "/auth/federated/callback", "Complete federated sign-in", map[string]string{"302": "signed in, redirect to /courses", "400": "invalid state", "401": "provider rejected the code"}},
	{"post", "/auth/logout", "Sign out and clear the session cookie", map[string]string{"200": "logged out"}},

	{"get", "/api/v1/me", "Current user profile", map[string]string{"200": "profile", "401": "not signed in"}},
	{"get", "/api/v1/me/avatar", "Link to the profile picture", map[string]string{"200": "presigned url", "404": "no avatar"}},
	{"put", "/api/v1/me/avatar", "Upload a profile picture (multipart field \"avatar\")", map[string]string{"204": "stored", "413": "too large", "415": "not an image"}},
	{"delete", "/api/v1/me/avatar", "Remove the profile picture", map[string]string{"204": "removed"}},

	{"get", "/api/courses", "List courses", map[string]string{"200": "courses"}},
	{"post", "/api/courses", "Create a course (admin)", map[string]string{"201": "created", "403": "admin only"}},
	{"get", "/api/courses/{id}", "Get a course", map[string]string{"200": "course", "404": "not found"}},
	{"patch", "/api/courses/{id}", "Update a course (admin)", map[string]string{"200": "updated", "404": "not found"}},
	{"delete", "/api/courses/{id}", "Delete a course (admin)", map[string]string{"204": "deleted"}},

	{"post", "/api/v1/courses/{id}/enroll", "Enroll in a course", map[string]string{"201": "enrolled", "200": "already enrolled"}},
	{"post", "/api/v1/courses/{id}/lessons/{lessonId}/complete", "Mark a lesson completed", map[string]string{"200": "course progress", "409": "not enrolled"}},
	{"get", "/api/v1/courses/{id}/progress", "Course progress", map[string]string{"200": "course progress"}},
	{"get", "/api/v1/admin/analytics", "Monthly enrollments over the past year (admin)", map[string]string{"200": "analytics"}},
	{"put", "/api/v1/admin/users/{id}/role", "Change a user's role (admin)", map[string]string{"200": "updated", "400": "unknown role", "404": "no such user"}},

	{"get", "/health", "Liveness check", map[string]string{"200": "healthy"}},
	{"get", "/ready", "Readiness check", map[string]string{"200": "ready", "503": "not ready"}},
}

// openAPIDoc renders apiOps as an OpenAPI 3 document.
func openAPIDoc(ops []apiOp) gin.H {
	paths := map[string]gin.H{}
	for _, op := range ops {
		responses := gin.H{}
		codes := make([]string, 0, len(op.Responses))
		for code := range op.Responses {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			responses[code] = gin.H{"description": op.Responses[code]}
		}
		if paths[op.Path] == nil {
			paths[op.Path] = gin.H{}
		}
		paths[op.Path][op.Method] = gin.H{"summary": op.Summary, "responses": responses}
	}
	return gin.H{
		"openapi": "3.0.0",
		"info":    gin.H{"title": "lms-api", "version": "v0.1.0"},
		"paths":   paths,
	}
}

// RegisterSwagger serves a Swagger UI page at /swagger/index.html backed by /swagger/doc.json.
func RegisterSwagger(rg *gin.Engine) {
	doc := openAPIDoc(apiOps)
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerHTML))
	})
	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.JSON(http.StatusOK, doc)
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>lms-api docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>window.ui = SwaggerUIBundle({ url: '/swagger/doc.json', dom_id: '#swagger-ui' })</script>
  </body>
</html>`
