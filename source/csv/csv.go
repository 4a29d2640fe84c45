// Package csv loads records from a contact-database CSV export and keeps
// updates in memory until they are exported again.
package csv

import (
	encsv "encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/smallnest/leadgraph/lead"
	"github.com/smallnest/leadgraph/source/memory"
)

// Column names understood when reading. Alternatives are tried in order.
var (
	idColumns       = []string{"# Id", "Id", "id"}
	emailColumns    = []string{"Email", "email"}
	titleColumns    = []string{"Title"}
	companyColumns  = []string{"Company", "Organization"}
	linkedInColumns = []string{"LinkedIn", "Person Linkedin Url"}
	websiteColumns  = []string{"Website"}
	phoneColumns    = []string{"Phone"}
	statusColumns   = []string{"Status"}
)

// Header written by Export, followed by the sorted extra field names.
var exportHeader = []string{"# Id", "Name", "Email", "Phone", "Title", "Company", "Website", "LinkedIn", "Location", "Status", "Profile"}

// Source is a CSV-backed record source.
type Source struct {
	*memory.Source
	path string
}

var _ lead.Source = (*Source)(nil)

// Open reads the CSV file at path.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	records, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &Source{Source: memory.New(records...), path: path}, nil
}

// Parse reads records from r. Rows without an id column get their row index.
func Parse(r io.Reader) ([]lead.Record, error) {
	reader := encsv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	known := map[string]bool{"Name": true, "First Name": true, "Last Name": true, "Location": true, "City": true, "State": true, "Profile": true}
	for _, cols := range [][]string{idColumns, emailColumns, titleColumns, companyColumns, linkedInColumns, websiteColumns, phoneColumns, statusColumns} {
		for _, c := range cols {
			known[c] = true
		}
	}

	var out []lead.Record
	for idx := 0; ; idx++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", idx+1, err)
		}
		values := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(row) {
				values[h] = strings.TrimSpace(row[i])
			}
		}

		rec := lead.Record{
			ID:       first(values, idColumns...),
			Email:    first(values, emailColumns...),
			Title:    first(values, titleColumns...),
			Company:  first(values, companyColumns...),
			LinkedIn: first(values, linkedInColumns...),
			Website:  first(values, websiteColumns...),
			Phone:    first(values, phoneColumns...),
			Status:   first(values, statusColumns...),
			Profile:  values["Profile"],
		}
		if rec.ID == "" {
			rec.ID = strconv.Itoa(idx)
		}
		rec.Name = values["Name"]
		if rec.Name == "" {
			rec.Name = strings.TrimSpace(values["First Name"] + " " + values["Last Name"])
		}
		rec.Address = values["Location"]
		if rec.Address == "" {
			rec.Address = strings.Trim(values["City"]+", "+values["State"], ", ")
		}
		if rec.Status == "" {
			rec.Status = lead.StatusNew
		}
		for h, v := range values {
			if !known[h] && v != "" {
				if rec.Fields == nil {
					rec.Fields = make(map[string]string)
				}
				rec.Fields[h] = v
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func first(values map[string]string, columns ...string) string {
	for _, c := range columns {
		if v := values[c]; v != "" {
			return v
		}
	}
	return ""
}

// Export writes every record, including updates, to path. An empty path
// overwrites the file the source was opened from.
func (s *Source) Export(path string) error {
	if path == "" {
		path = s.path
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv: %w", err)
	}
	if err := Write(f, s.All()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write encodes records as CSV.
func Write(w io.Writer, records []lead.Record) error {
	var extra []string
	for _, r := range records {
		for k := range r.Fields {
			if !slices.Contains(extra, k) {
				extra = append(extra, k)
			}
		}
	}
	slices.Sort(extra)

	cw := encsv.NewWriter(w)
	if err := cw.Write(append(slices.Clone(exportHeader), extra...)); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{r.ID, r.Name, r.Email, r.Phone, r.Title, r.Company, r.Website, r.LinkedIn, r.Address, r.Status, r.Profile}
		for _, k := range extra {
			row = append(row, r.Fields[k])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Path returns the file the source was loaded from.
func (s *Source) Path() string { return s.path }

