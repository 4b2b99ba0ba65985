package arcgis

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/matzehuels/infographics/pkg/errors"
)

// StudyArea is one entry of the CreateReport studyAreas array.
type StudyArea struct {
	Geometry json.RawMessage `json:"geometry"`
}

// ReportRequest describes a CreateReport call.
type ReportRequest struct {
	StudyAreas []StudyArea // At least one
	Report     string      // Standard report id or report template item id
	Format     string      // "pdf", "xlsx" or "html"
	OutFolder  string      // Directory the report is written to; created if missing
	OutName    string      // File name inside OutFolder
}

// CreateReport asks the geoenrichment service to render a report and
// streams the result to OutFolder/OutName. The file is written under a
// temporary name and renamed once complete, so a failed download never
// leaves a partial report behind. It returns the path of the written file.
func (c *Client) CreateReport(ctx context.Context, req ReportRequest) (string, error) {
	if len(req.StudyAreas) == 0 {
		return "", errors.New(errors.ErrCodeInvalidInput, "at least one study area is required")
	}
	if req.OutName == "" {
		return "", errors.New(errors.ErrCodeInvalidPath, "output name cannot be empty")
	}

	ge, err := c.GeoenrichmentURL(ctx)
	if err != nil {
		return "", err
	}

	areas, err := json.Marshal(req.StudyAreas)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "encode study areas")
	}
	form := url.Values{
		"studyAreas": {string(areas)},
		"report":     {req.Report},
		"format":     {req.Format},
	}

	httpReq, err := c.newPostRequest(ctx, ge+"/Geoenrichment/CreateReport", form, "bin")
	if err != nil {
		return "", err
	}
	resp, err := c.send(c.report, httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// f=bin answers errors with a JSON body and a 200 status.
	if mayCarryError(resp.Header.Get("Content-Type")) {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeNetwork, err, "read report response")
		}
		if svcErr := parseEnvelope(body); svcErr != nil {
			return "", errors.Wrap(svcErr.Code(), svcErr, "create report %s", req.Report)
		}
		return c.writeReport(req, bytes.NewReader(body))
	}
	return c.writeReport(req, resp.Body)
}

func (c *Client) writeReport(req ReportRequest, r io.Reader) (string, error) {
	folder := req.OutFolder
	if folder == "" {
		folder = "."
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "create output folder")
	}

	final := filepath.Join(folder, req.OutName)
	tmp, err := os.CreateTemp(folder, "."+uuid.NewString()+"-*.part")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "create output file")
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		cleanup()
		return "", errors.Wrap(errors.ErrCodeNetwork, err, "download report")
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "write report")
	}
	if err := os.Rename(tmpName, final); err != nil {
		cleanup()
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "move report into place")
	}

	c.logger.Debug("report written", "path", final, "bytes", n, "format", req.Format)
	return final, nil
}

// mayCarryError reports whether a response of this type could be an error
// envelope rather than a rendered report.
func mayCarryError(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json") || mt == "text/plain"
}
