// Package esx mirrors documents into Elasticsearch for future ranked
// retrieval. Keyword search still runs against the relational index; the
// mirror is write-only for now.
package esx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	es8 "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/samber/lo"

	"github.com/usecogent/cogent-api/internal/config"
)

type Client = es8.Client

// DocumentsIndex is the mirror index name.
const DocumentsIndex = "cogent-documents"

func Open(cfg *config.Config) (*Client, func(), error) {
	if strings.TrimSpace(cfg.ES.Addrs) == "" {
		return nil, func() {}, nil
	}
	raw := strings.Split(cfg.ES.Addrs, ",")
	addrs := lo.FilterMap(raw, func(s string, _ int) (string, bool) {
		t := strings.TrimSpace(s)
		return t, t != ""
	})
	es, err := es8.NewClient(es8.Config{Addresses: addrs, Username: cfg.ES.Username, Password: cfg.ES.Password})
	if err != nil {
		return nil, func() {}, err
	}
	return es, func() {}, nil
}

// DocumentDoc is the Elasticsearch representation of a document.
type DocumentDoc struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	FilePath  string `json:"file_path"`
	Content   string `json:"content"`
	Summary   string `json:"summary"`
	UpdatedAt string `json:"updated_at"`
}

// IndexDocument upserts a document into the mirror index. A nil client is a
// no-op.
func IndexDocument(ctx context.Context, es *Client, doc DocumentDoc) error {
	if es == nil {
		return nil
	}
	b, _ := json.Marshal(doc)
	res, err := es.Index(DocumentsIndex, bytes.NewReader(b),
		es.Index.WithDocumentID(doc.ID),
		es.Index.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		return fmtError(res)
	}
	return nil
}

func fmtError(res *esapi.Response) error { return fmt.Errorf("es error: %s", res.String()) }
