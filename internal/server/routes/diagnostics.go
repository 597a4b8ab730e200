package routes

import (
	"net/url"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/treebridge/treebridge/internal/idtable"
	"github.com/treebridge/treebridge/internal/projection"
	"github.com/treebridge/treebridge/internal/provider"
	"github.com/treebridge/treebridge/internal/remote"
	"github.com/treebridge/treebridge/internal/server"
	"github.com/treebridge/treebridge/internal/tree"
)

// RegisterDiagnosticsRoutes 暴露 /-/providers 与 /-/mappings 诊断接口，供运维查询
// provider 类型、实例绑定以及映射表内容。
func RegisterDiagnosticsRoutes(app *fiber.App, registry *server.ProviderRegistry, table idtable.Table) {
	if app == nil || registry == nil {
		return
	}

	app.Get("/-/providers", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"kinds":     encodeKinds(provider.List()),
			"providers": encodeBindings(registry.List()),
		})
	})

	app.Get("/-/providers/:name", func(c fiber.Ctx) error {
		route, ok := registry.Lookup(strings.TrimSpace(c.Params("name")))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "provider_not_found"})
		}
		return c.JSON(encodeDetail(*route))
	})

	app.Get("/-/mappings/:prefix", func(c fiber.Ctx) error {
		prefix := strings.TrimSpace(c.Params("prefix"))
		if prefix == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "prefix_required"})
		}
		if _, ok := registry.LookupPrefix(prefix); !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "prefix_not_found"})
		}
		if table == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "mapping_table_unavailable"})
		}
		entries, err := table.List(c.Context(), prefix)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"prefix": prefix, "entries": encodeEntries(entries)})
	})
}

type kindPayload struct {
	Key         string `json:"key"`
	Description string `json:"description"`
}

type bindingPayload struct {
	Name             string `json:"name"`
	Type             string `json:"type"`
	KeyPrefix        string `json:"key_prefix"`
	TemplateID       string `json:"template_id"`
	ParentTemplateID string `json:"parent_template_id"`
	Endpoint         string `json:"endpoint"`
}

type detailPayload struct {
	bindingPayload
	RemoteEndpoint  string   `json:"remote_endpoint,omitempty"`
	CachedRecords   int      `json:"cached_records"`
	ProjectedFields []string `json:"projected_fields,omitempty"`
}

// recordSource 由基于远端仓库的 provider 实现，例如 people。
type recordSource interface {
	Repository() *remote.Repository
}

type entryPayload struct {
	Key      string `json:"key"`
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
}

func encodeKinds(kinds []provider.Kind) []kindPayload {
	if len(kinds) == 0 {
		return nil
	}
	result := make([]kindPayload, 0, len(kinds))
	for _, kind := range kinds {
		result = append(result, kindPayload{Key: kind.Key, Description: kind.Description})
	}
	return result
}

func encodeBindings(routes []server.ProviderRoute) []bindingPayload {
	if len(routes) == 0 {
		return nil
	}
	sort.Slice(routes, func(i, j int) bool {
		return routes[i].Config.Name < routes[j].Config.Name
	})
	result := make([]bindingPayload, 0, len(routes))
	for _, route := range routes {
		endpoint := route.Config.Endpoint
		if route.EndpointURL != nil {
			endpoint = route.EndpointURL.Redacted()
		}
		result = append(result, bindingPayload{
			Name:             route.Config.Name,
			Type:             route.Kind.Key,
			KeyPrefix:        route.Config.KeyPrefix,
			TemplateID:       route.TemplateID.String(),
			ParentTemplateID: route.ParentTemplateID.String(),
			Endpoint:         endpoint,
		})
	}
	return result
}

func encodeDetail(route server.ProviderRoute) detailPayload {
	detail := detailPayload{bindingPayload: encodeBindings([]server.ProviderRoute{route})[0]}
	if src, ok := route.Provider.(recordSource); ok {
		repo := src.Repository()
		if u, err := url.Parse(repo.Endpoint()); err == nil {
			detail.RemoteEndpoint = u.Redacted()
		}
		detail.CachedRecords = repo.Cached()
		detail.ProjectedFields = projection.Names()
	}
	return detail
}

func encodeEntries(entries []idtable.Entry) []entryPayload {
	result := make([]entryPayload, 0, len(entries))
	for _, entry := range entries {
		item := entryPayload{Key: entry.Key, ID: entry.ID.String()}
		if entry.ParentID != tree.NullID {
			item.ParentID = entry.ParentID.String()
		}
		result = append(result, item)
	}
	return result
}
