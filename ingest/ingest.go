/*
Package ingest parses the three source datasets and loads them into the
store, replacing whatever the tenant had before.

PURPOSE:
  The engine's source data arrives as uploads from the SAP side:
    - Baseline license extract: ABAP XML (asx:abap envelope, DOWNLOAD items)
    - Authorization reference:  CSV, six positional columns
    - User-role memberships:    CSV, two positional columns
  Each upload replaces the tenant's dataset whole (truncate-then-load);
  there are no incremental merges. Every successful load appends an audit
  row with a generated id and the row count.

FORMAT NOTES:
  The baseline XML interleaves two kinds of <item> elements: role headers
  (no OBJECT element, carrying AGR_TEXT and AGR_CLASSIF) and object rows.
  Role headers are collected first and their attributes denormalized onto
  every object row of the same role, exactly as the extract intends.

SEE ALSO:
  - store/sqlite: Replace* methods this package drives
  - api/handlers.go: Upload endpoints
*/
package ingest

import (
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/warp/license-engine/license"
)

var (
	// ErrNoItems means the XML parsed but contained no object rows.
	ErrNoItems = errors.New("no object rows found in baseline XML")
	// ErrBadRow means a CSV row had fewer columns than the format requires.
	ErrBadRow = errors.New("csv row has too few columns")
)

// =============================================================================
// BASELINE XML (ABAP asx envelope)
// =============================================================================

type baselineItem struct {
	AgrName    string `xml:"AGR_NAME"`
	AgrText    string `xml:"AGR_TEXT"`
	AgrClassif string `xml:"AGR_CLASSIF"`
	Object     string `xml:"OBJECT"`
	TText      string `xml:"TTEXT"`
	Field      string `xml:"FIELD"`
	Low        string `xml:"LOW"`
	High       string `xml:"HIGH"`
	ClassifS4  string `xml:"CLASSIF_S4"`
}

type baselineDocument struct {
	XMLName xml.Name       `xml:"abap"`
	Items   []baselineItem `xml:"values>DOWNLOAD>item"`
}

type roleHeader struct {
	Text    string
	Classif string
}

// ParseBaselineXML decodes an ABAP license extract. Items without an OBJECT
// element are role headers; their text and classification are denormalized
// onto every object row of that role.
func ParseBaselineXML(r io.Reader) ([]license.RoleObjectAssignment, error) {
	var doc baselineDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode baseline XML: %w", err)
	}

	headers := make(map[string]roleHeader)
	for _, item := range doc.Items {
		if item.Object == "" && item.AgrName != "" {
			headers[item.AgrName] = roleHeader{Text: item.AgrText, Classif: item.AgrClassif}
		}
	}

	var rows []license.RoleObjectAssignment
	for _, item := range doc.Items {
		if item.Object == "" {
			continue
		}
		roleText, roleClassif := item.AgrText, item.AgrClassif
		if h, ok := headers[item.AgrName]; ok {
			roleText, roleClassif = h.Text, h.Classif
		}
		rows = append(rows, license.RoleObjectAssignment{
			Role:               item.AgrName,
			RoleText:           roleText,
			RoleClassification: license.Classification(roleClassif),
			Object:             item.Object,
			Text:               item.TText,
			Field:              item.Field,
			Low:                item.Low,
			High:               item.High,
			Classification:     license.Classification(item.ClassifS4),
		})
	}
	if len(rows) == 0 {
		return nil, ErrNoItems
	}
	return rows, nil
}

// =============================================================================
// AUTHORIZATION REFERENCE CSV
// =============================================================================

// ParseAuthReferenceCSV decodes the reference table. Columns, in order:
// authorization object, field, activity, text, license, ui_text. The first
// row is a header and is skipped.
func ParseAuthReferenceCSV(r io.Reader) ([]license.AuthObjectLicense, error) {
	records, err := readCSV(r, 6)
	if err != nil {
		return nil, err
	}

	rows := make([]license.AuthObjectLicense, 0, len(records))
	for _, rec := range records {
		rows = append(rows, license.AuthObjectLicense{
			Object:   rec[0],
			Field:    rec[1],
			Activity: rec[2],
			Text:     rec[3],
			License:  license.Classification(rec[4]),
			UIText:   rec[5],
		})
	}
	return rows, nil
}

// =============================================================================
// USER ROLE CSV
// =============================================================================

// ParseUserRolesCSV decodes the membership table. Columns: role, user.
// The first row is a header and is skipped.
func ParseUserRolesCSV(r io.Reader) ([]license.UserRole, error) {
	records, err := readCSV(r, 2)
	if err != nil {
		return nil, err
	}

	rows := make([]license.UserRole, 0, len(records))
	for _, rec := range records {
		rows = append(rows, license.UserRole{Role: rec[0], User: rec[1]})
	}
	return rows, nil
}

// readCSV reads all data rows, skipping the header row. A UTF-8 BOM, when
// present, sits on the header and is discarded with it. Each data row must
// carry at least minCols columns.
func readCSV(r io.Reader, minCols int) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}
	records = records[1:]

	for i, rec := range records {
		if len(rec) < minCols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrBadRow, i+2, len(rec), minCols)
		}
	}
	return records, nil
}
