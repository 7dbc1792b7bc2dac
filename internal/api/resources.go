package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"project-tracker/internal/model"
	"project-tracker/internal/service"
)

func (h *handler) today() model.Date {
	return model.DateOf(h.now())
}

func (h *handler) listProjects(c echo.Context) error {
	q, err := h.listQuery(c, "status", "priority", "category")
	if err != nil {
		return h.respond(c, err)
	}
	page, err := h.svc.Projects.List(c.Request().Context(), q)
	if err != nil {
		return h.respond(c, err)
	}
	today := h.today()
	return writePage(c, q, page, func(p *model.Project) projectJSON { return newProjectJSON(p, today) })
}

func (h *handler) getProject(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return h.respond(c, err)
	}
	project, err := h.svc.Projects.Get(c.Request().Context(), id)
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(http.StatusOK, newProjectJSON(project, h.today()))
}

func (h *handler) createProject(c echo.Context) error {
	in := service.NewProjectInput()
	if err := decodeBody(c, &in); err != nil {
		return h.respond(c, err)
	}
	project, err := h.svc.Projects.Create(c.Request().Context(), in)
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(http.StatusCreated, newProjectJSON(project, h.today()))
}

func (h *handler) updateProject(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return h.respond(c, err)
	}
	in := service.NewProjectInput()
	if err := decodeBody(c, &in); err != nil {
		return h.respond(c, err)
	}
	project, err := h.svc.Projects.Update(c.Request().Context(), id, in)
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(http.StatusOK, newProjectJSON(project, h.today()))
}

func (h *handler) patchProject(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return h.respond(c, err)
	}
	project, err := h.svc.Projects.Patch(c.Request().Context(), id, func(in *service.ProjectInput) error {
		return decodeBody(c, in)
	})
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(http.StatusOK, newProjectJSON(project, h.today()))
}

func (h *handler) deleteProject(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return h.respond(c, err)
	}
	if err := h.svc.Projects.Delete(c.Request().Context(), id); err != nil {
		return h.respond(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handler) listCategories(c echo.Context) error {
	q, err := h.listQuery(c)
	if err != nil {
		return h.respond(c, err)
	}
	page, err := h.svc.Categories.List(c.Request().Context(), q)
	if err != nil {
		return h.respond(c, err)
	}
	return writePage(c, q, page, newCategoryJSON)
}

func (h *handler) getCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return h.respond(c, err)
	}
	category, err := h.svc.Categories.Get(c.Request().Context(), id)
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(http.StatusOK, newCategoryJSON(category))
}

func (h *handler) createCategory(c echo.Context) error {
	var in service.CategoryInput
	if err := decodeBody(c, &in); err != nil {
		return h.respond(c, err)
	}
	category, err := h.svc.Categories.Create(c.Request().Context(), in)
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(http.StatusCreated, newCategoryJSON(category))
}

func (h *handler) updateCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return h.respond(c, err)
	}
	var in service.CategoryInput
	if err := decodeBody(c, &in); err != nil {
		return h.respond(c, err)
	}
	category, err := h.svc.Categories.Update(c.Request().Context(), id, in)
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(http.StatusOK, newCategoryJSON(category))
}

func (h *handler) patchCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return h.respond(c, err)
	}
	category, err := h.svc.Categories.Patch(c.Request().Context(), id, func(in *service.CategoryInput) error {
		return decodeBody(c, in)
	})
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(http.StatusOK, newCategoryJSON(category))
}

func (h *handler) deleteCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return h.respond(c, err)
	}
	if err := h.svc.Categories.Delete(c.Request().Context(), id); err != nil {
		return h.respond(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handler) listTasks(c echo.Context) error {
	q, err := h.listQuery(c, "status", "priority", "project")
	if err != nil {
		return h.respond(c, err)
	}
	page, err := h.svc.Tasks.List(c.Request().Context(), q)
	if err != nil {
		return h.respond(c, err)
	}
	today := h.today()
	return writePage(c, q, page, func(t *model.Task) taskJSON { return newTaskJSON(t, today) })
}

func (h *handler) getTask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return h.respond(c, err)
	}
	task, err := h.svc.Tasks.Get(c.Request().Context(), id)
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(http.StatusOK, newTaskJSON(task, h.today()))
}

func (h *handler) createTask(c echo.Context) error {
	in := service.NewTaskInput()
	if err := decodeBody(c, &in); err != nil {
		return h.respond(c, err)
	}
	task, err := h.svc.Tasks.Create(c.Request().Context(), in)
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(http.StatusCreated, newTaskJSON(task, h.today()))
}

func (h *handler) updateTask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return h.respond(c, err)
	}
	in := service.NewTaskInput()
	if err := decodeBody(c, &in); err != nil {
		return h.respond(c, err)
	}
	task, err := h.svc.Tasks.Update(c.Request().Context(), id, in)
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(http.StatusOK, newTaskJSON(task, h.today()))
}

func (h *handler) patchTask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return h.respond(c, err)
	}
	task, err := h.svc.Tasks.Patch(c.Request().Context(), id, func(in *service.TaskInput) error {
		return decodeBody(c, in)
	})
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(http.StatusOK, newTaskJSON(task, h.today()))
}

func (h *handler) deleteTask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return h.respond(c, err)
	}
	if err := h.svc.Tasks.Delete(c.Request().Context(), id); err != nil {
		return h.respond(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
