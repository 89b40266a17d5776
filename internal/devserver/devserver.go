// Package devserver serves the functions over plain HTTP for local work. Each
// request is translated into the API Gateway v2 event the function would get
// in AWS.
package devserver

import (
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/greengliwice/trees-backend/internal/functions"
)

// Router mounts routes on a gin engine with permissive CORS.
func Router(routes []functions.Route, log *slog.Logger) *gin.Engine {
	if log == nil {
		log = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-Sub"},
		ExposeHeaders:   []string{"Content-Length"},
		MaxAge:          12 * time.Hour,
	}))

	for _, rt := range routes {
		r.Handle(rt.Method, ginPath(rt.Path), adapt(rt, log))
	}
	return r
}

// ginPath rewrites {param} placeholders as :param.
func ginPath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
			segs[i] = ":" + s[1:len(s)-1]
		}
	}
	return strings.Join(segs, "/")
}

func adapt(rt functions.Route, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := toEvent(c.Request, c.Params)
		if err != nil {
			c.String(http.StatusBadRequest, "read body: %v", err)
			return
		}
		resp, err := rt.Handler(c.Request.Context(), req)
		if err != nil {
			log.ErrorContext(c.Request.Context(), "handler error", "fn", rt.Name, "error", err)
			c.Status(http.StatusBadGateway)
			return
		}
		write(c, resp)
	}
}

func toEvent(r *http.Request, params gin.Params) (events.APIGatewayV2HTTPRequest, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return events.APIGatewayV2HTTPRequest{}, err
	}

	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		headers[strings.ToLower(k)] = strings.Join(v, ",")
	}
	query := make(map[string]string)
	for k, v := range r.URL.Query() {
		query[k] = strings.Join(v, ",")
	}
	path := make(map[string]string, len(params))
	for _, p := range params {
		path[p.Key] = p.Value
	}

	ev := events.APIGatewayV2HTTPRequest{
		RawPath:               r.URL.Path,
		RawQueryString:        r.URL.RawQuery,
		Headers:               headers,
		QueryStringParameters: query,
		PathParameters:        path,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method: r.Method,
				Path:   r.URL.Path,
			},
		},
	}
	if len(body) > 0 {
		ev.Body = base64.StdEncoding.EncodeToString(body)
		ev.IsBase64Encoded = true
	}
	return ev, nil
}

func write(c *gin.Context, resp events.APIGatewayV2HTTPResponse) {
	for k, v := range resp.Headers {
		c.Header(k, v)
	}
	body := []byte(resp.Body)
	if resp.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(resp.Body)
		if err != nil {
			c.Status(http.StatusBadGateway)
			return
		}
		body = decoded
	}
	c.Status(resp.StatusCode)
	_, _ = c.Writer.Write(body)
}
