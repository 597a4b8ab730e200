package server

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/treebridge/treebridge/internal/host"
	"github.com/treebridge/treebridge/internal/tree"
)

type itemPayload struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TemplateID string `json:"template_id"`
	Cacheable  bool   `json:"cacheable"`
}

type fieldPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value"`
}

type versionPayload struct {
	Language string `json:"language"`
	Version  int    `json:"version"`
}

type saveRequest struct {
	Fields map[string]string `json:"fields"`
}

func registerItemRoutes(app *fiber.App, db *host.Database) {
	h := &itemHandler{db: db}

	app.Get("/items/:id", h.item)
	app.Get("/items/:id/children", h.children)
	app.Get("/items/:id/parent", h.parent)
	app.Get("/items/:id/versions", h.versions)
	app.Get("/items/:id/fields", h.fields)
	app.Put("/items/:id/fields", h.save)
	app.Get("/publish-queue", h.publishQueue)
	app.Get("/languages", h.languages)
}

type itemHandler struct {
	db *host.Database
}

func itemID(c fiber.Ctx) (tree.ID, error) {
	id, err := tree.ParseID(c.Params("id"))
	if err != nil {
		return tree.NullID, fiber.NewError(fiber.StatusBadRequest, "invalid_id")
	}
	return id, nil
}

func encodeItem(def *tree.ItemDefinition) itemPayload {
	return itemPayload{
		ID:         def.ID.String(),
		Name:       def.Name,
		TemplateID: def.TemplateID.String(),
		Cacheable:  def.Cacheable,
	}
}

func encodeIDs(ids []tree.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func (h *itemHandler) item(c fiber.Ctx) error {
	id, err := itemID(c)
	if err != nil {
		return err
	}
	def, err := h.db.Item(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(encodeItem(def))
}

func (h *itemHandler) children(c fiber.Ctx) error {
	id, err := itemID(c)
	if err != nil {
		return err
	}
	ids, err := h.db.Children(c.Context(), id)
	if err != nil {
		return err
	}

	items := make([]itemPayload, 0, len(ids))
	for _, child := range ids {
		def, err := h.db.Item(c.Context(), child)
		if err != nil {
			// 子节点无法解析时仍返回其 ID，名称留空。
			items = append(items, itemPayload{ID: child.String()})
			continue
		}
		items = append(items, encodeItem(def))
	}
	return c.JSON(fiber.Map{"id": id.String(), "children": items})
}

func (h *itemHandler) parent(c fiber.Ctx) error {
	id, err := itemID(c)
	if err != nil {
		return err
	}
	parent, err := h.db.Parent(c.Context(), id)
	if err != nil {
		return err
	}
	payload := fiber.Map{"id": id.String(), "parent_id": nil}
	if parent != tree.NullID {
		payload["parent_id"] = parent.String()
	}
	return c.JSON(payload)
}

func (h *itemHandler) versions(c fiber.Ctx) error {
	id, err := itemID(c)
	if err != nil {
		return err
	}
	versions, err := h.db.Versions(c.Context(), id)
	if err != nil {
		return err
	}
	out := make([]versionPayload, 0, len(versions))
	for _, v := range versions {
		out = append(out, versionPayload{Language: string(v.Language), Version: v.Version})
	}
	return c.JSON(fiber.Map{"id": id.String(), "versions": out})
}

func (h *itemHandler) fields(c fiber.Ctx) error {
	id, err := itemID(c)
	if err != nil {
		return err
	}
	version := 0
	if raw := strings.TrimSpace(c.Query("version")); raw != "" {
		if version, err = strconv.Atoi(raw); err != nil || version < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid_version")
		}
	}
	language := tree.Language(strings.TrimSpace(c.Query("language")))

	item, err := h.db.Item(c.Context(), id)
	if err != nil {
		return err
	}
	list, err := h.db.Fields(c.Context(), id, language, version)
	if err != nil {
		return err
	}

	tpl, hasTemplate := h.db.Templates().GetTemplate(item.TemplateID)
	out := make([]fieldPayload, 0, list.Len())
	list.Each(func(fid tree.ID, value string) {
		entry := fieldPayload{ID: fid.String(), Value: value}
		if hasTemplate {
			if f, ok := tpl.Field(fid); ok {
				entry.Name = f.Name
			}
		}
		out = append(out, entry)
	})
	return c.JSON(fiber.Map{"id": id.String(), "fields": out})
}

func (h *itemHandler) save(c fiber.Ctx) error {
	id, err := itemID(c)
	if err != nil {
		return err
	}
	var req saveRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil || len(req.Fields) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid_body")
	}
	item, err := h.db.Item(c.Context(), id)
	if err != nil {
		return err
	}

	changes := make([]tree.FieldChange, 0, len(req.Fields))
	for ref, value := range req.Fields {
		field, ok := h.db.Templates().ResolveField(item.TemplateID, ref)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown_field", "field": ref})
		}
		changes = append(changes, tree.FieldChange{FieldID: field.ID, Value: value})
	}

	saved, err := h.db.Save(c.Context(), id, changes)
	if err != nil {
		return err
	}
	status := fiber.StatusOK
	if !saved {
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(fiber.Map{"id": id.String(), "saved": saved})
}

func (h *itemHandler) publishQueue(c fiber.Ctx) error {
	from, err := parseTimeQuery(c, "from", time.Time{})
	if err != nil {
		return err
	}
	to, err := parseTimeQuery(c, "to", time.Now())
	if err != nil {
		return err
	}
	ids := h.db.PublishQueue(c.Context(), from, to)
	return c.JSON(fiber.Map{"items": encodeIDs(ids)})
}

func parseTimeQuery(c fiber.Ctx, key string, fallback time.Time) (time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "invalid_"+key)
	}
	return t, nil
}

func (h *itemHandler) languages(c fiber.Ctx) error {
	langs := h.db.Languages(c.Context())
	out := make([]string, len(langs))
	for i, l := range langs {
		out[i] = string(l)
	}
	return c.JSON(fiber.Map{"languages": out})
}
