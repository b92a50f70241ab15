// Package search implements keyword search over a project's documents.
package search

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/usecogent/cogent-api/internal/config"
	"github.com/usecogent/cogent-api/internal/httpx/kit"
	"github.com/usecogent/cogent-api/internal/httpx/mw"
	"github.com/usecogent/cogent-api/internal/httpx/projects"
	"github.com/usecogent/cogent-api/internal/logx"
	"github.com/usecogent/cogent-api/internal/models"
	"github.com/usecogent/cogent-api/internal/mqx"
)

var searchLogger = logx.GetScope("search")

// Request is the search body; limit/offset travel in JSON here.
type Request struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// Result is one search hit; Content carries the excerpt, not the full text.
type Result struct {
	DocumentID     uuid.UUID `json:"documentId"`
	FilePath       string    `json:"filePath"`
	Content        string    `json:"content"`
	RelevanceScore float64   `json:"relevanceScore"`
}

// totalProbeLimit bounds the secondary count query.
const totalProbeLimit = 1000

type row struct {
	DocumentID uuid.UUID
	FilePath   string
	Content    string
	RawScore   float64
}

// Handler runs a conjunctive keyword search over the project's search index.
// Every query word must appear in a document's full text for it to match;
// relevance grows with how often the whole phrase repeats.
func Handler(cfg *config.Config, gdb *gorm.DB, pub mqx.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		td := mw.User(c)
		projectID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return kit.ValidationError("Invalid project id", c.Params("id"))
		}
		var req Request
		if err := c.BodyParser(&req); err != nil {
			return kit.ValidationError("Invalid request body", nil)
		}
		query := strings.TrimSpace(req.Query)
		if query == "" {
			return kit.ValidationError("query is required", nil)
		}
		pg := kit.ClampPaging(req.Limit, req.Offset, cfg.Page.SearchDefault, cfg.Page.SearchMax)

		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()

		if _, err := projects.FindOwned(ctx, gdb, projectID, td.UserID); err != nil {
			return err
		}

		words := strings.Fields(strings.ToLower(query))

		rows, err := runQuery(ctx, gdb, projectID, query, words, pg.Limit, pg.Offset)
		if err != nil {
			return kit.Internal("search failed", err.Error())
		}
		probe, err := runQuery(ctx, gdb, projectID, query, words, totalProbeLimit, 0)
		if err != nil {
			return kit.Internal("search failed", err.Error())
		}

		results := lo.Map(rows, func(r row, _ int) Result {
			return Result{
				DocumentID:     r.DocumentID,
				FilePath:       r.FilePath,
				Content:        excerpt(r.Content, words),
				RelevanceScore: lo.Clamp(r.RawScore/10, 0.1, 1.0),
			}
		})

		recordUsage(c.Context(), gdb, pub, projectID, query, len(probe))

		return kit.OK(c, fiber.Map{
			"results": results,
			"total":   len(probe),
			"query":   query,
		})
	}
}

// runQuery matches documents whose indexed text contains every query word and
// scores them by whole-phrase repetition, best first.
func runQuery(ctx context.Context, gdb *gorm.DB, projectID uuid.UUID, query string, words []string, limit, offset int) ([]row, error) {
	lowerQuery := strings.ToLower(query)

	var sb strings.Builder
	args := []any{lowerQuery, len(lowerQuery), projectID}
	sb.WriteString(`
SELECT d.id AS document_id, d.file_path, d.content,
       (LENGTH(LOWER(si.full_text)) - LENGTH(REPLACE(LOWER(si.full_text), ?, ''))) * 1.0 / ? AS raw_score
FROM search_indices si
JOIN documents d ON d.id = si.document_id
WHERE d.project_id = ?`)
	for _, w := range words {
		sb.WriteString(" AND LOWER(si.full_text) LIKE ?")
		args = append(args, "%"+w+"%")
	}
	sb.WriteString(" ORDER BY raw_score DESC, d.updated_at DESC LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	var rows []row
	if err := gdb.WithContext(ctx).Raw(sb.String(), args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// recordUsage appends a ledger row for the search and emits the usage event.
// Neither failure reaches the caller.
func recordUsage(ctx context.Context, gdb *gorm.DB, pub mqx.Publisher, projectID uuid.UUID, query string, resultCount int) {
	uctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	meta, _ := json.Marshal(map[string]any{
		"query":       query,
		"resultCount": resultCount,
	})
	usage := models.Usage{
		ID:                uuid.New(),
		ProjectID:         projectID,
		Timestamp:         time.Now().UTC(),
		OperationType:     models.OpSearch,
		OperationMetadata: datatypes.JSON(meta),
	}
	if err := gdb.WithContext(uctx).Create(&usage).Error; err != nil {
		searchLogger.Sugar().Warnw("record usage failed", "project_id", projectID, "err", err)
		return
	}
	if err := mqx.PublishJSON(uctx, pub, mqx.KeyUsageRecorded, fiber.Map{
		"usageId":       usage.ID,
		"projectId":     projectID,
		"operationType": models.OpSearch,
		"timestamp":     usage.Timestamp,
	}); err != nil {
		searchLogger.Sugar().Warnw("publish usage.recorded failed", "project_id", projectID, "err", err)
	}
}
