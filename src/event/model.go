package event

import (
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// ResourceMethod is one matched endpoint: an HTTP method on a route template
// served by a single handler.
type ResourceMethod struct {
	HTTPMethod string `json:"httpMethod"`
	Path       string `json:"path"`    // route template, e.g. /users/:id
	Handler    string `json:"handler"` // handler function name
	Class      string `json:"class"`   // receiver type or package of the handler
}

func NewResourceMethod(httpMethod, path, handler string) ResourceMethod {
	return ResourceMethod{
		HTTPMethod: strings.ToUpper(httpMethod),
		Path:       path,
		Handler:    handler,
		Class:      HandlerClass(handler),
	}
}

func (m ResourceMethod) Key() string {
	return MethodKey(m.HTTPMethod, m.Path)
}

func MethodKey(httpMethod, path string) string {
	return strings.ToUpper(httpMethod) + " " + path
}

// Resource groups the methods registered on one route template.
type Resource struct {
	Path    string           `json:"path"`
	Methods []ResourceMethod `json:"methods"`
}

type ApplicationInfo struct {
	Name      string     `json:"name"`
	StartTime time.Time  `json:"startTime"`
	Resources []Resource `json:"resources"`
}

// ModelFromRoutes builds the resource model from the routes registered on a
// gin engine. Resources and their methods are sorted by path and method.
func ModelFromRoutes(routes gin.RoutesInfo) []Resource {
	byPath := make(map[string]*Resource)
	for _, r := range routes {
		res, ok := byPath[r.Path]
		if !ok {
			res = &Resource{Path: r.Path}
			byPath[r.Path] = res
		}
		res.Methods = append(res.Methods, NewResourceMethod(r.Method, r.Path, r.Handler))
	}

	result := make([]Resource, 0, len(byPath))
	for _, res := range byPath {
		sort.Slice(res.Methods, func(i, j int) bool {
			return res.Methods[i].HTTPMethod < res.Methods[j].HTTPMethod
		})
		result = append(result, *res)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Path < result[j].Path
	})
	return result
}

// AddMethod returns resources with rm added, keeping the ordering of
// ModelFromRoutes. A method already present is replaced.
func AddMethod(resources []Resource, rm ResourceMethod) []Resource {
	i := sort.Search(len(resources), func(i int) bool { return resources[i].Path >= rm.Path })
	result := make([]Resource, 0, len(resources)+1)
	result = append(result, resources[:i]...)
	if i < len(resources) && resources[i].Path == rm.Path {
		res := Resource{Path: rm.Path}
		for _, m := range resources[i].Methods {
			if m.HTTPMethod != rm.HTTPMethod {
				res.Methods = append(res.Methods, m)
			}
		}
		res.Methods = append(res.Methods, rm)
		sort.Slice(res.Methods, func(a, b int) bool {
			return res.Methods[a].HTTPMethod < res.Methods[b].HTTPMethod
		})
		result = append(result, res)
		i++
	} else {
		result = append(result, Resource{Path: rm.Path, Methods: []ResourceMethod{rm}})
	}
	return append(result, resources[i:]...)
}

// HandlerClass derives the owning type of a handler from its function name.
//
//	github.com/acme/api/users.(*Ctrl).Get-fm -> github.com/acme/api/users.(*Ctrl)
//	github.com/acme/api/users.List           -> github.com/acme/api/users
//	main.main.func1                          -> main
//	github.com/acme/api/users.List[...]      -> github.com/acme/api/users
func HandlerClass(handler string) string {
	name := strings.ReplaceAll(strings.TrimSuffix(handler, "-fm"), "[...]", "")
	for {
		idx := strings.LastIndex(name, ".func")
		if idx < 0 || !isDigits(name[idx+len(".func"):]) {
			break
		}
		name = name[:idx]
	}
	slash := strings.LastIndex(name, "/")
	dot := strings.LastIndex(name, ".")
	if dot <= slash {
		return name
	}
	return name[:dot]
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
