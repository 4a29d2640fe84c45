package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallnest/leadgraph/log"
	"github.com/smallnest/leadgraph/narrative"
)

// Hit is one search result.
type Hit struct {
	Title   string
	Link    string
	Snippet string
	Date    string
}

// Searcher runs web searches.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Hit, error)
}

// NewsSearcher is implemented by searchers with a dedicated news index.
type NewsSearcher interface {
	SearchNews(ctx context.Context, query, since string) ([]Hit, error)
}

// hitsPerQuery is how many results of each query are kept.
const hitsPerQuery = 5

// FormatHits renders hits as numbered blocks for a prompt.
func FormatHits(hits []Hit) string {
	var sb strings.Builder
	for i, h := range hits {
		fmt.Fprintf(&sb, "Result %d:\nTitle: %s\nSnippet: %s\nURL: %s\n", i+1,
			orDefault(h.Title, "No title"), orDefault(h.Snippet, "No snippet"), orDefault(h.Link, "No link"))
		if h.Date != "" {
			fmt.Fprintf(&sb, "Date: %s\n", h.Date)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// CompanyDomain returns the domain part of an email address.
func CompanyDomain(email string) string {
	_, domain, ok := strings.Cut(email, "@")
	if !ok || domain == "" {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(domain))
}

// searchAll runs every query and keeps the top hits of each. Failed queries
// are logged and skipped.
func searchAll(ctx context.Context, s Searcher, queries []string) []Hit {
	var all []Hit
	for _, q := range queries {
		hits, err := s.Search(ctx, q)
		if err != nil {
			log.Warn("search query failed for %q: %v", q, err)
			continue
		}
		if len(hits) > hitsPerQuery {
			hits = hits[:hitsPerQuery]
		}
		all = append(all, hits...)
	}
	return all
}

// LeadFindings is what web research found about a person.
type LeadFindings struct {
	Profile         string
	CompanyName     string
	Website         string
	CompanyLinkedIn string
}

// ResearchLead searches the web for a person and summarizes the results. The
// company name defaults to the email domain. When nothing is found the
// profile is a short placeholder and no model call is made.
func ResearchLead(ctx context.Context, s Searcher, n narrative.Narrator, name, email string) (LeadFindings, error) {
	company := CompanyDomain(email)
	if company == "" {
		company = "Company not found"
	}
	f := LeadFindings{CompanyName: company}

	hits := searchAll(ctx, s, []string{
		fmt.Sprintf("%s %s", name, company),
		fmt.Sprintf("%s LinkedIn", name),
		fmt.Sprintf("%q professional profile", name),
	})
	if len(hits) == 0 {
		log.Info("no search results found for %s", name)
		f.Profile = fmt.Sprintf("Lead: %s (%s)\nCompany: %s\nNo additional information available from search results.", name, email, company)
		return f, nil
	}

	input := fmt.Sprintf("# Lead Name: %s\n# Lead Email: %s\n# Company (from email domain): %s\n\n# Search Results:\n%s",
		name, email, company, FormatHits(hits))
	profile, err := n.Generate(ctx, leadProfilePrompt, input)
	if err != nil {
		return f, fmt.Errorf("failed to summarize lead profile: %w", err)
	}
	f.Profile = profile

	key := companyKey(company)
	for _, h := range hits {
		link := strings.ToLower(h.Link)
		switch {
		case strings.Contains(link, "linkedin.com/company/"):
			if f.CompanyLinkedIn == "" {
				f.CompanyLinkedIn = h.Link
			}
		case key != "" && strings.Contains(link, key) && !isSocial(link):
			f.Website = h.Link
		}
	}
	return f, nil
}

// companyKey turns "acme.com" into "acme" for matching links.
func companyKey(domain string) string {
	label, _, _ := strings.Cut(strings.TrimPrefix(strings.ToLower(domain), "www."), ".")
	return label
}

func isSocial(link string) bool {
	for _, host := range []string{"linkedin.com", "facebook.com", "twitter.com", "x.com/"} {
		if strings.Contains(link, host) {
			return true
		}
	}
	return false
}

// CompanyIdentifier derives a searchable name from a company LinkedIn URL.
// Other input is returned unchanged.
func CompanyIdentifier(ref string) string {
	_, rest, ok := strings.Cut(ref, "linkedin.com/company/")
	if !ok {
		return ref
	}
	slug, _, _ := strings.Cut(rest, "/")
	return strings.ReplaceAll(slug, "-", " ")
}

// ResearchCompany searches the web for a company, given its LinkedIn URL or
// name, and returns a profile.
func ResearchCompany(ctx context.Context, s Searcher, n narrative.Narrator, ref string) (string, error) {
	id := CompanyIdentifier(ref)
	if id == "" {
		return "No information available from search results", nil
	}

	hits := searchAll(ctx, s, []string{
		fmt.Sprintf("%s company", id),
		fmt.Sprintf("%s about", id),
		fmt.Sprintf("%q company profile", id),
	})
	if len(hits) == 0 {
		log.Info("no search results found for company %s", id)
		return "No information available from search results", nil
	}

	input := fmt.Sprintf("# Company Identifier: %s\n# Company LinkedIn URL: %s\n\n# Search Results:\n%s", id, ref, FormatHits(hits))
	profile, err := n.Generate(ctx, companyProfilePrompt, input)
	if err != nil {
		return "", fmt.Errorf("failed to summarize company profile: %w", err)
	}
	return profile, nil
}

// RecentNews returns formatted news hits about company from the last months.
// An empty string means no news was found.
func RecentNews(ctx context.Context, s Searcher, company string, months int) (string, error) {
	if company == "" {
		return "", nil
	}
	var (
		hits []Hit
		err  error
	)
	if ns, ok := s.(NewsSearcher); ok {
		since := ""
		if months > 0 {
			since = fmt.Sprintf("qdr:m%d", months)
		}
		hits, err = ns.SearchNews(ctx, company, since)
	} else {
		hits, err = s.Search(ctx, company+" news")
	}
	if err != nil {
		return "", fmt.Errorf("failed to search news for %s: %w", company, err)
	}
	return FormatHits(hits), nil
}
