// Package peopleapi 实现开发用的 Person REST 服务，契约与 remote 客户端一致：
// 列表、按键读取、PUT 更新、POST 新增与 DELETE 删除。
package peopleapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/treebridge/treebridge/internal/records"
	"github.com/treebridge/treebridge/internal/remote"
)

// NewApp 基于 records.Store 构建 Fiber 应用。
func NewApp(store *records.Store, logger *logrus.Logger) (*fiber.App, error) {
	if store == nil {
		return nil, errors.New("records store is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		ErrorHandler:  errorHandler(logger),
	})
	app.Use(recover.New())

	h := &handler{store: store, logger: logger}
	app.Get("/people", h.list)
	app.Get("/people/:key", h.get)
	app.Put("/people/:key", h.update)
	app.Post("/people/:key", h.add)
	app.Delete("/people/:key", h.delete)
	return app, nil
}

type handler struct {
	store  *records.Store
	logger *logrus.Logger
}

func personKey(c fiber.Ctx) (string, error) {
	key := strings.TrimSpace(c.Params("key"))
	if key == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "key_required")
	}
	return key, nil
}

func decodePerson(c fiber.Ctx) (remote.Person, error) {
	var p remote.Person
	if len(c.Body()) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(c.Body(), &p); err != nil {
		return p, fiber.NewError(fiber.StatusBadRequest, "invalid_body")
	}
	return p, nil
}

func (h *handler) list(c fiber.Ctx) error {
	people, err := h.store.All()
	if err != nil {
		return err
	}
	return c.JSON(people)
}

func (h *handler) get(c fiber.Ctx) error {
	key, err := personKey(c)
	if err != nil {
		return err
	}
	p, err := h.store.Get(key)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (h *handler) update(c fiber.Ctx) error {
	key, err := personKey(c)
	if err != nil {
		return err
	}
	p, err := decodePerson(c)
	if err != nil {
		return err
	}
	if _, err := h.store.Update(key, p); err != nil {
		return err
	}
	h.logger.WithFields(logrus.Fields{"action": "person_update", "key": key}).Info("person updated")
	return c.JSON(fiber.Map{"message": fmt.Sprintf("user %s updated", key)})
}

func (h *handler) add(c fiber.Ctx) error {
	key, err := personKey(c)
	if err != nil {
		return err
	}
	p, err := decodePerson(c)
	if err != nil {
		return err
	}
	if err := h.store.Add(key, p); err != nil {
		return err
	}
	h.logger.WithFields(logrus.Fields{"action": "person_add", "key": key}).Info("person added")
	return c.JSON(fiber.Map{"message": fmt.Sprintf("user %s added", key)})
}

func (h *handler) delete(c fiber.Ctx) error {
	key, err := personKey(c)
	if err != nil {
		return err
	}
	if err := h.store.Delete(key); err != nil {
		return err
	}
	h.logger.WithFields(logrus.Fields{"action": "person_delete", "key": key}).Info("person deleted")
	return c.JSON(fiber.Map{"message": fmt.Sprintf("user %s deleted", key)})
}

func errorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		name := "internal_error"
		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			code = fe.Code
			name = fe.Message
		case errors.Is(err, records.ErrNotFound):
			code = fiber.StatusNotFound
			name = "person_not_found"
		case errors.Is(err, records.ErrExists):
			code = fiber.StatusConflict
			name = "person_exists"
		case errors.Is(err, records.ErrEmptyKey):
			code = fiber.StatusBadRequest
			name = "key_required"
		default:
			logger.WithError(err).WithFields(logrus.Fields{
				"action": "request_failed",
				"path":   c.Path(),
			}).Error("request failed")
		}
		return c.Status(code).JSON(fiber.Map{"error": name})
	}
}
