// Package projects provides HTTP handlers for managing projects.
package projects

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/usecogent/cogent-api/internal/config"
	"github.com/usecogent/cogent-api/internal/httpx/kit"
	"github.com/usecogent/cogent-api/internal/httpx/mw"
	"github.com/usecogent/cogent-api/internal/models"
)

// CreateProjectRequest is the request body for creating a project.
type CreateProjectRequest struct {
	Name    string  `json:"name"`
	RepoURL *string `json:"repoUrl,omitempty"`
}

// UpdateProjectRequest is the request body for updating a project. Only
// supplied fields are applied.
type UpdateProjectRequest struct {
	Name    *string `json:"name,omitempty"`
	RepoURL *string `json:"repoUrl,omitempty"`
}

// ListProjectsHandler lists projects owned by the current user, newest first.
func ListProjectsHandler(cfg *config.Config, gdb *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		td := mw.User(c)
		pg, err := kit.ParsePaging(c, cfg.Page.ProjectDefault, cfg.Page.ProjectMax)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		var total int64
		if err := gdb.WithContext(ctx).Model(&models.Project{}).
			Where("user_id = ?", td.UserID).Count(&total).Error; err != nil {
			return kit.Internal("list projects failed", err.Error())
		}

		var rows []models.Project
		if err := gdb.WithContext(ctx).
			Where("user_id = ?", td.UserID).
			Order("created_at DESC").
			Limit(pg.Limit).Offset(pg.Offset).
			Find(&rows).Error; err != nil {
			return kit.Internal("list projects failed", err.Error())
		}

		return kit.OK(c, fiber.Map{
			"projects": rows,
			"total":    total,
			"limit":    pg.Limit,
			"offset":   pg.Offset,
		})
	}
}

// CreateProjectHandler creates a project with a fresh api key.
func CreateProjectHandler(cfg *config.Config, gdb *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		td := mw.User(c)
		var req CreateProjectRequest
		if err := c.BodyParser(&req); err != nil {
			return kit.ValidationError("Invalid request body", nil)
		}
		if req.Name == "" {
			return kit.ValidationError("name is required", nil)
		}

		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		// The token may outlive its user row; creation must not orphan data.
		var owner models.User
		if err := gdb.WithContext(ctx).First(&owner, "id = ?", td.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return kit.InvalidUser()
			}
			return kit.Internal("create project failed", err.Error())
		}

		project := models.Project{
			ID:        uuid.New(),
			Name:      req.Name,
			UserID:    td.UserID,
			RepoURL:   req.RepoURL,
			APIKey:    uuid.NewString(),
			CreatedAt: time.Now().UTC(),
		}
		if err := gdb.WithContext(ctx).Create(&project).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return kit.Conflict("Project already exists")
			}
			return kit.Internal("create project failed", err.Error())
		}

		return kit.Created(c, project)
	}
}

// FindOwned fetches a project scoped by both id and owner; absence and
// non-ownership are indistinguishable to the caller. Shared with the
// documents and search handlers.
func FindOwned(ctx context.Context, gdb *gorm.DB, projectID, userID uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := gdb.WithContext(ctx).
		Where("id = ? AND user_id = ?", projectID, userID).
		First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, kit.NotFound("Project not found")
	}
	if err != nil {
		return nil, kit.Internal("load project failed", err.Error())
	}
	return &project, nil
}

func parseProjectID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, kit.ValidationError("Invalid project id", c.Params("id"))
	}
	return id, nil
}

// GetProjectHandler returns one owned project.
func GetProjectHandler(gdb *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		td := mw.User(c)
		id, err := parseProjectID(c)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		project, err := FindOwned(ctx, gdb, id, td.UserID)
		if err != nil {
			return err
		}
		return kit.OK(c, project)
	}
}

// UpdateProjectHandler applies a partial update to an owned project.
func UpdateProjectHandler(gdb *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		td := mw.User(c)
		id, err := parseProjectID(c)
		if err != nil {
			return err
		}
		var req UpdateProjectRequest
		if err := c.BodyParser(&req); err != nil {
			return kit.ValidationError("Invalid request body", nil)
		}

		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		project, err := FindOwned(ctx, gdb, id, td.UserID)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if req.Name != nil {
			if *req.Name == "" {
				return kit.ValidationError("name cannot be empty", nil)
			}
			updates["name"] = *req.Name
		}
		if req.RepoURL != nil {
			updates["repo_url"] = *req.RepoURL
		}
		if len(updates) > 0 {
			if err := gdb.WithContext(ctx).Model(project).Updates(updates).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return kit.Conflict("Project already exists")
				}
				return kit.Internal("update project failed", err.Error())
			}
		}

		return kit.OK(c, project)
	}
}

// DeleteProjectHandler removes an owned project and all dependent rows in one
// transaction.
func DeleteProjectHandler(gdb *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		td := mw.User(c)
		id, err := parseProjectID(c)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(c.Context(), 8*time.Second)
		defer cancel()

		project, err := FindOwned(ctx, gdb, id, td.UserID)
		if err != nil {
			return err
		}

		err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			docIDs := tx.Model(&models.Document{}).Select("id").Where("project_id = ?", project.ID)
			if err := tx.Where("document_id IN (?)", docIDs).Delete(&models.SearchIndex{}).Error; err != nil {
				return err
			}
			if err := tx.Where("project_id = ?", project.ID).Delete(&models.Document{}).Error; err != nil {
				return err
			}
			if err := tx.Where("project_id = ?", project.ID).Delete(&models.Usage{}).Error; err != nil {
				return err
			}
			return tx.Delete(project).Error
		})
		if err != nil {
			return kit.Internal("delete project failed", err.Error())
		}

		return kit.NoContent(c)
	}
}
