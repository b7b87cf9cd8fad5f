package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/existflow/oahu/internal/errs"
	"github.com/existflow/oahu/internal/index"
	"github.com/existflow/oahu/internal/model"
)

// SkippedItem is an item a sync left out
type SkippedItem struct {
	Collection string `json:"collection"`
	ID         string `json:"id,omitempty"`
	Type       string `json:"type,omitempty"`
	Error      string `json:"error"`
}

// SyncResponse is the response of a record sync
type SyncResponse struct {
	Record   model.Record  `json:"record"`
	Previous string        `json:"previous_rev,omitempty"`
	Changed  bool          `json:"changed"`
	Children int           `json:"children"`
	Skipped  []SkippedItem `json:"skipped"`
}

func kindParam(c echo.Context) (model.Kind, error) {
	name := c.Param("kind")
	k, ok := model.LookupKind(name)
	if !ok {
		return "", errs.UnrecognizedKind("server", name)
	}
	return k, nil
}

func (s *Server) handleKinds(c echo.Context) error {
	out := make(map[string]string)
	for _, k := range model.Kinds() {
		out[string(k)] = k.Collection()
	}
	return c.JSON(http.StatusOK, out)
}

// handleList returns every cached record of a kind
func (s *Server) handleList(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	recs, err := s.repo.FindTagged(c.Request().Context(), kind, index.AllTag)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recs)
}

// handleGet returns one record, fetching it from the remote on a miss
func (s *Server) handleGet(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	rec, err := s.repo.Find(c.Request().Context(), kind, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// handleFindBy returns the records whose key attribute equals value
func (s *Server) handleFindBy(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	recs, err := s.repo.FindTagged(c.Request().Context(), kind, index.Tag(c.Param("key"), c.Param("value")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recs)
}

// handleSync refreshes one record from the remote
func (s *Server) handleSync(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	res, err := s.engine.Sync(c.Request().Context(), kind, c.Param("id"))
	if err != nil {
		return err
	}

	resp := SyncResponse{
		Record:   res.Record,
		Previous: res.Previous,
		Changed:  res.Changed,
		Children: res.Children,
		Skipped:  make([]SkippedItem, 0, len(res.Skipped)),
	}
	for _, sk := range res.Skipped {
		resp.Skipped = append(resp.Skipped, SkippedItem{
			Collection: sk.Collection,
			ID:         sk.ID,
			Type:       sk.Discriminator,
			Error:      sk.Err.Error(),
		})
	}
	return c.JSON(http.StatusOK, resp)
}
