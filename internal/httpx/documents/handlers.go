// Package documents provides HTTP handlers for listing and upserting project
// documents.
package documents

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/usecogent/cogent-api/internal/config"
	"github.com/usecogent/cogent-api/internal/esx"
	"github.com/usecogent/cogent-api/internal/httpx/kit"
	"github.com/usecogent/cogent-api/internal/httpx/mw"
	"github.com/usecogent/cogent-api/internal/httpx/projects"
	"github.com/usecogent/cogent-api/internal/logx"
	"github.com/usecogent/cogent-api/internal/models"
	"github.com/usecogent/cogent-api/internal/mqx"
	"github.com/usecogent/cogent-api/internal/pathsafe"
)

var docLogger = logx.GetScope("documents")

// UpsertDocumentRequest is the create-or-update body.
type UpsertDocumentRequest struct {
	FilePath string `json:"filePath"`
	Content  string `json:"content"`
	Summary  string `json:"summary"`
}

// ListDocumentsHandler lists a project's documents, most recently updated
// first, optionally filtered by path prefix.
func ListDocumentsHandler(cfg *config.Config, gdb *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		td := mw.User(c)
		projectID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return kit.ValidationError("Invalid project id", c.Params("id"))
		}
		pg, err := kit.ParsePaging(c, cfg.Page.DocumentDefault, cfg.Page.DocumentMax)
		if err != nil {
			return err
		}

		pathPrefix := c.Query("path", "")
		if pathPrefix != "" && !pathsafe.Valid(pathPrefix) {
			return kit.ValidationError("Invalid path filter", pathPrefix)
		}

		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		if _, err := projects.FindOwned(ctx, gdb, projectID, td.UserID); err != nil {
			return err
		}

		scoped := func() *gorm.DB {
			q := gdb.WithContext(ctx).Model(&models.Document{}).Where("project_id = ?", projectID)
			if pathPrefix != "" {
				q = q.Where("file_path LIKE ?", pathPrefix+"%")
			}
			return q
		}

		var total int64
		if err := scoped().Count(&total).Error; err != nil {
			return kit.Internal("list documents failed", err.Error())
		}

		var rows []models.Document
		if err := scoped().Order("updated_at DESC").
			Limit(pg.Limit).Offset(pg.Offset).
			Find(&rows).Error; err != nil {
			return kit.Internal("list documents failed", err.Error())
		}

		return kit.OK(c, fiber.Map{
			"documents": rows,
			"total":     total,
			"limit":     pg.Limit,
			"offset":    pg.Offset,
		})
	}
}

// UpsertDocumentHandler creates or updates the document at (project, filePath)
// and keeps its search index row in step, inside one transaction. The
// elasticsearch mirror and the upsert event are best-effort afterthoughts.
func UpsertDocumentHandler(gdb *gorm.DB, es *esx.Client, pub mqx.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		td := mw.User(c)
		projectID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return kit.ValidationError("Invalid project id", c.Params("id"))
		}
		var req UpsertDocumentRequest
		if err := c.BodyParser(&req); err != nil {
			return kit.ValidationError("Invalid request body", nil)
		}
		if !pathsafe.Valid(req.FilePath) {
			return kit.ValidationError("Invalid file path", req.FilePath)
		}

		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()

		if _, err := projects.FindOwned(ctx, gdb, projectID, td.UserID); err != nil {
			return err
		}

		now := time.Now().UTC()
		var doc models.Document
		txErr := gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			err := tx.Where("project_id = ? AND file_path = ?", projectID, req.FilePath).
				First(&doc).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				doc = models.Document{
					ID:        uuid.New(),
					ProjectID: projectID,
					FilePath:  req.FilePath,
					Content:   req.Content,
					Summary:   req.Summary,
					CreatedAt: now,
					UpdatedAt: now,
				}
				if err := tx.Create(&doc).Error; err != nil {
					return err
				}
				return tx.Create(&models.SearchIndex{
					ID:         uuid.New(),
					DocumentID: doc.ID,
					FullText:   req.Content,
				}).Error
			case err != nil:
				return err
			default:
				if err := tx.Model(&doc).Updates(map[string]any{
					"content":    req.Content,
					"summary":    req.Summary,
					"updated_at": now,
				}).Error; err != nil {
					return err
				}
				doc.Content = req.Content
				doc.Summary = req.Summary
				doc.UpdatedAt = now
				return tx.Model(&models.SearchIndex{}).
					Where("document_id = ?", doc.ID).
					Update("full_text", req.Content).Error
			}
		})
		if txErr != nil {
			return kit.Internal("upsert document failed", txErr.Error())
		}

		mirrorDocument(c.Context(), es, pub, &doc)

		return kit.OK(c, doc)
	}
}

func mirrorDocument(ctx context.Context, es *esx.Client, pub mqx.Publisher, doc *models.Document) {
	mctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := esx.IndexDocument(mctx, es, esx.DocumentDoc{
		ID:        doc.ID.String(),
		ProjectID: doc.ProjectID.String(),
		FilePath:  doc.FilePath,
		Content:   doc.Content,
		Summary:   doc.Summary,
		UpdatedAt: doc.UpdatedAt.Format(time.RFC3339),
	}); err != nil {
		docLogger.Sugar().Warnw("es mirror failed", "doc_id", doc.ID, "err", err)
	}

	if err := mqx.PublishJSON(mctx, pub, mqx.KeyDocumentUpserted, fiber.Map{
		"documentId": doc.ID,
		"projectId":  doc.ProjectID,
		"filePath":   doc.FilePath,
		"updatedAt":  doc.UpdatedAt,
	}); err != nil {
		docLogger.Sugar().Warnw("publish document.upserted failed", "doc_id", doc.ID, "err", err)
	}
}
