package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/smallnest/leadgraph/export"
	"github.com/smallnest/leadgraph/graph"
	"github.com/smallnest/leadgraph/lead"
	"github.com/smallnest/leadgraph/log"
	"github.com/smallnest/leadgraph/narrative"
	"github.com/smallnest/leadgraph/outreach"
	"github.com/smallnest/leadgraph/research"
)

// Deps are the collaborators of the outreach graph. Deliverer and Exporter
// are optional.
type Deps struct {
	Source    lead.Source
	Narrator  narrative.Narrator
	Searcher  research.Searcher
	Scraper   research.Scraper
	Deliverer outreach.Deliverer
	Exporter  export.Exporter
	Logger    log.Logger
}

func (d Deps) validate() error {
	var missing []string
	if d.Source == nil {
		missing = append(missing, "Source")
	}
	if d.Narrator == nil {
		missing = append(missing, "Narrator")
	}
	if d.Searcher == nil {
		missing = append(missing, "Searcher")
	}
	if d.Scraper == nil {
		missing = append(missing, "Scraper")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing dependencies: %s", strings.Join(missing, ", "))
	}
	return nil
}

// WebsiteData is the structured analysis of a company website.
type WebsiteData struct {
	Summary  string `json:"summary" description:"What the company does, for whom, and what it sells"`
	BlogURL  string `json:"blog_url" description:"The company's own blog, or empty"`
	YouTube  string `json:"youtube" description:"YouTube channel URL, or empty"`
	Facebook string `json:"facebook" description:"Facebook page URL, or empty"`
	Twitter  string `json:"twitter" description:"Twitter or X account URL, or empty"`
}

// EmailResponse is the structured personalized email.
type EmailResponse struct {
	Subject string `json:"subject" description:"Email subject line"`
	Email   string `json:"email" description:"Plain text email body"`
}

type nodes struct {
	Deps
	cfg Config
}

func (n *nodes) date() string { return n.cfg.today() }

func noteReport(title, content string) lead.Report {
	return lead.Report{Title: title, Content: content, Markdown: true}
}

// fetchLeads loads the records to process. Failure ends the run.
func (n *nodes) fetchLeads(ctx context.Context, state graph.State) (graph.Update, error) {
	opts := lead.FetchOptions{IDs: graph.Get[[]string](state, KeyLeadIDs)}
	opts.IDs = opts.UniqueIDs()
	fetched, err := n.Source.Fetch(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leads: %w", err)
	}
	records := make([]lead.Record, 0, len(fetched))
	seen := make(map[string]bool, len(fetched))
	for _, r := range fetched {
		if seen[r.ID] {
			n.Logger.Warn("lead %s returned twice by the source, skipping the copy", r.ID)
			continue
		}
		seen[r.ID] = true
		records = append(records, r)
	}
	n.Logger.Info("fetched %d leads", len(records))
	return graph.Update{KeyLeads: records, KeyRemaining: len(records)}, nil
}

// moreLeads routes to the next record while any remain.
func moreLeads(_ context.Context, state graph.State) string {
	if graph.Get[int](state, KeyRemaining) > 0 {
		return "found"
	}
	return "none"
}

// nextLead pops the last queued record and resets everything tied to the
// previous one.
func (n *nodes) nextLead(_ context.Context, state graph.State) (graph.Update, error) {
	queue := graph.Get[[]lead.Record](state, KeyLeads)
	if len(queue) == 0 {
		return nil, errors.New("lead queue is empty")
	}
	rec := queue[len(queue)-1]
	n.Logger.Info("processing lead %s (%s), %d remaining", rec.ID, rec.Name, graph.Get[int](state, KeyRemaining))

	return graph.Update{
		KeyLeads:              slices.Clone(queue[:len(queue)-1]),
		KeyCurrentLead:        rec.Clone(),
		KeyCompany:            lead.Company{Name: rec.Company, Website: rec.Website},
		KeyReports:            graph.Overwrite{Value: []lead.Report{}},
		KeyLeadScore:          "",
		KeyOutreachReportLink: "",
		KeyReportsFolderLink:  "",
		KeyEmailStatus:        "",
	}, nil
}

// researchLead builds the lead and company profiles from web search.
func (n *nodes) researchLead(ctx context.Context, state graph.State) graph.Result {
	rec := currentLead(state)
	co := company(state)

	findings, err := research.ResearchLead(ctx, n.Searcher, n.Narrator, rec.Name, rec.Email)
	if err != nil {
		rec.Profile = fmt.Sprintf("Lead: %s (%s)", rec.Name, rec.Email)
		return graph.Failure(err, graph.Update{KeyCurrentLead: rec})
	}
	rec.Profile = findings.Profile

	if co.Name == "" {
		co.Name = findings.CompanyName
	}
	if co.Website == "" {
		co.Website = findings.Website
	}
	co.LinkedIn = findings.CompanyLinkedIn

	ref := co.LinkedIn
	if ref == "" {
		ref = co.Name
	}
	profile, err := research.ResearchCompany(ctx, n.Searcher, n.Narrator, ref)
	if err != nil {
		return graph.Failure(err, graph.Update{KeyCurrentLead: rec, KeyCompany: co})
	}
	co.Profile = profile

	return graph.Success(graph.Update{KeyCurrentLead: rec, KeyCompany: co})
}

// reviewWebsite analyzes the company website, discovers content channels and
// writes the general research report.
func (n *nodes) reviewWebsite(ctx context.Context, state graph.State) graph.Result {
	rec := currentLead(state)
	co := company(state)

	if co.Website != "" {
		if err := n.analyzeWebsite(ctx, &co); err != nil {
			n.Logger.Warn("website review of %s failed: %v", co.Website, err)
		}
	}

	input := fmt.Sprintf("# Lead Profile:\n\n%s\n\n# Company Information:\n\n%s\n", rec.Profile, co.Profile)
	text, err := n.Narrator.Generate(ctx, leadSearchReportPrompt, input)
	if err != nil {
		return graph.Failure(err, graph.Update{
			KeyCompany: co,
			KeyReports: []lead.Report{noteReport(lead.ReportGeneral, input)},
		})
	}
	return graph.Success(graph.Update{
		KeyCompany: co,
		KeyReports: []lead.Report{noteReport(lead.ReportGeneral, text)},
	})
}

func (n *nodes) analyzeWebsite(ctx context.Context, co *lead.Company) error {
	page, err := n.Scraper.Scrape(ctx, co.Website)
	if err != nil {
		return err
	}

	var info WebsiteData
	input := page.Markdown + "\n\n# Links\n" + strings.Join(page.Links, "\n")
	if err := n.Narrator.GenerateJSON(ctx, websiteAnalysisPrompt(co.Website), input, "website_data", &info); err != nil {
		n.Logger.Warn("structured website analysis failed, using page links: %v", err)
	}

	blog, youtube, facebook, twitter := research.SocialLinks(co.Website, page.Links)
	co.Social = lead.SocialLinks{
		Blog:     firstNonEmpty(info.BlogURL, blog),
		YouTube:  firstNonEmpty(info.YouTube, youtube),
		Facebook: firstNonEmpty(info.Facebook, facebook),
		Twitter:  firstNonEmpty(info.Twitter, twitter),
	}

	summary := firstNonEmpty(info.Summary, page.Title)
	input = fmt.Sprintf("# Scraped Website:\n%s\n\n# Company Research:\n%s", summary, co.Profile)
	profile, err := n.Narrator.Generate(ctx, companyProfilePrompt, input)
	if err != nil {
		return err
	}
	co.Profile = profile
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// analyzeChannel scrapes url and asks for an analysis.
func (n *nodes) analyzeChannel(ctx context.Context, url, system string) (string, error) {
	page, err := n.Scraper.Scrape(ctx, url)
	if err != nil {
		return "", err
	}
	return n.Narrator.Generate(ctx, system, page.Markdown)
}

func (n *nodes) analyzeBlog(ctx context.Context, state graph.State) graph.Result {
	co := company(state)
	if co.Social.Blog == "" {
		return graph.Success(nil)
	}
	text, err := n.analyzeChannel(ctx, co.Social.Blog, blogAnalysisPrompt(co.Name))
	if err != nil {
		return graph.Failure(err, graph.Update{
			KeyReports: []lead.Report{noteReport(lead.ReportBlog, "No blog content available (scraping failed)")},
		})
	}
	return graph.Success(graph.Update{KeyReports: []lead.Report{noteReport(lead.ReportBlog, text)}})
}

func (n *nodes) analyzeSocialMedia(ctx context.Context, state graph.State) graph.Result {
	co := company(state)
	channels := []struct {
		name, title, url string
	}{
		{"YouTube", lead.ReportYouTube, co.Social.YouTube},
		{"Facebook", lead.ReportFacebook, co.Social.Facebook},
		{"Twitter", lead.ReportTwitter, co.Social.Twitter},
	}

	var (
		out  []lead.Report
		errs []error
	)
	for _, ch := range channels {
		if ch.url == "" {
			continue
		}
		text, err := n.analyzeChannel(ctx, ch.url, channelAnalysisPrompt(ch.name, co.Name))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.name, err))
			text = fmt.Sprintf("No %s content available (analysis failed)", ch.name)
		}
		out = append(out, noteReport(ch.title, text))
	}
	if len(out) == 0 {
		return graph.Success(nil)
	}
	update := graph.Update{KeyReports: out}
	if err := errors.Join(errs...); err != nil {
		return graph.Failure(err, update)
	}
	return graph.Success(update)
}

func (n *nodes) analyzeRecentNews(ctx context.Context, state graph.State) graph.Result {
	co := company(state)
	news, err := research.RecentNews(ctx, n.Searcher, co.Name, n.cfg.NewsWindowMonths)
	if err != nil {
		return graph.Failure(err, graph.Update{
			KeyReports: []lead.Report{noteReport(lead.ReportNews, "No recent news available (search failed)")},
		})
	}
	if strings.TrimSpace(news) == "" {
		return graph.Success(graph.Update{
			KeyReports: []lead.Report{noteReport(lead.ReportNews, "No recent news found for this company.")},
		})
	}
	text, err := n.Narrator.Generate(ctx, newsAnalysisPrompt(co.Name, n.cfg.NewsWindowMonths, n.date()), news)
	if err != nil {
		return graph.Failure(err, graph.Update{KeyReports: []lead.Report{noteReport(lead.ReportNews, news)}})
	}
	return graph.Success(graph.Update{KeyReports: []lead.Report{noteReport(lead.ReportNews, text)}})
}

func (n *nodes) digitalPresenceReport(ctx context.Context, state graph.State) graph.Result {
	input := fmt.Sprintf(`# Digital Presence Data:
## Blog Information:

%s

## Facebook Information:

%s

## Twitter Information:

%s

## Youtube Information:

%s

# Recent News:

%s
`,
		report(state, lead.ReportBlog),
		report(state, lead.ReportFacebook),
		report(state, lead.ReportTwitter),
		report(state, lead.ReportYouTube),
		report(state, lead.ReportNews))

	text, err := n.Narrator.Generate(ctx, digitalPresencePrompt(company(state).Name, n.date()), input)
	if err != nil {
		return graph.Failure(err, graph.Update{
			KeyReports: []lead.Report{noteReport(lead.ReportDigitalPresence, "Digital presence analysis unavailable.")},
		})
	}
	return graph.Success(graph.Update{KeyReports: []lead.Report{noteReport(lead.ReportDigitalPresence, text)}})
}

func (n *nodes) fullResearchReport(ctx context.Context, state graph.State) graph.Result {
	input := fmt.Sprintf("# Lead & company Information:\n\n%s\n\n---\n\n# Digital Presence Information:\n\n%s\n",
		report(state, lead.ReportGeneral), report(state, lead.ReportDigitalPresence))

	text, err := n.Narrator.Generate(ctx, globalReportPrompt(company(state).Name, n.date()), input)
	if err != nil {
		return graph.Failure(err, graph.Update{KeyReports: []lead.Report{noteReport(lead.ReportGlobal, input)}})
	}
	return graph.Success(graph.Update{KeyReports: []lead.Report{noteReport(lead.ReportGlobal, text)}})
}

// scoreLead stores the scoring verdict. An empty verdict scores 0.
func (n *nodes) scoreLead(ctx context.Context, state graph.State) graph.Result {
	verdict, err := n.Narrator.Generate(ctx, scoreLeadPrompt, report(state, lead.ReportGlobal))
	if err != nil {
		return graph.Failure(err, graph.Update{KeyLeadScore: ""})
	}
	verdict = strings.TrimSpace(verdict)
	n.Logger.Info("lead %s scored %.1f", currentLead(state).ID, n.cfg.ScoreExtractor(verdict))
	return graph.Success(graph.Update{KeyLeadScore: verdict})
}

// isQualified routes on the extracted score.
func (n *nodes) isQualified(_ context.Context, state graph.State) string {
	if n.cfg.qualified(graph.Get[string](state, KeyLeadScore)) {
		return "qualified"
	}
	return "not_qualified"
}

func pass(context.Context, graph.State) (graph.Update, error) { return nil, nil }

func (n *nodes) outreachReport(ctx context.Context, state graph.State) graph.Result {
	input := fmt.Sprintf("**Research Report:**\n\n%s\n\n---\n\n**Case Study:**\n\n%s\n",
		report(state, lead.ReportGlobal), firstNonEmpty(n.cfg.CaseStudyLink, "Not available"))
	draft, err := n.Narrator.Generate(ctx, outreachReportPrompt, input)
	if err != nil {
		return graph.Failure(err, nil)
	}

	input = fmt.Sprintf("%s\n\n---\n\n**Correct Links:**\n\n** Our website link**: %s\n** Case study link**: %s\n",
		draft, n.cfg.WebsiteLink, n.cfg.CaseStudyLink)
	revised, err := n.Narrator.Generate(ctx, proofReaderPrompt, input)
	if err != nil {
		n.Logger.Warn("proofreading failed, keeping draft: %v", err)
		revised = draft
	}

	rep := noteReport(lead.ReportOutreach, revised)
	update := graph.Update{KeyReports: []lead.Report{rep}}
	if n.Exporter != nil && n.cfg.ExportReports {
		link, err := n.Exporter.Export(ctx, folderName(state), rep)
		if err != nil {
			n.Logger.Warn("failed to export outreach report: %v", err)
		} else {
			update[KeyOutreachReportLink] = link.Document
			update[KeyReportsFolderLink] = link.Folder
		}
	}
	return graph.Success(update)
}

func (n *nodes) personalizedEmail(ctx context.Context, state graph.State) graph.Result {
	rec := currentLead(state)
	input := fmt.Sprintf("# Lead & company Information:\n\n%s\n\n# Outreach report Link:\n\n%s\n",
		report(state, lead.ReportGeneral), graph.Get[string](state, KeyOutreachReportLink))

	var out EmailResponse
	if err := n.Narrator.GenerateJSON(ctx, personalizeEmailPrompt, input, "email_response", &out); err != nil {
		return graph.Failure(err, graph.Update{KeyEmailStatus: EmailNotGenerated})
	}

	update := graph.Update{
		KeyReports:     []lead.Report{{Title: lead.ReportEmail, Content: out.Email}},
		KeyEmailStatus: EmailDrafted,
	}
	if n.Deliverer == nil {
		return graph.Success(update)
	}

	msg := outreach.Message{LeadID: rec.ID, To: rec.Email, ToName: rec.Name, Subject: out.Subject, Body: out.Email}
	if _, err := n.Deliverer.CreateDraft(ctx, msg); err != nil {
		n.Logger.Warn("failed to create draft for %s: %v", rec.ID, err)
		update[KeyEmailStatus] = EmailFailed
	}
	if n.cfg.SendDirectly {
		if _, err := n.Deliverer.Send(ctx, msg); err != nil {
			n.Logger.Error("failed to send email to %s: %v", rec.ID, err)
			update[KeyEmailStatus] = EmailFailed
		} else {
			update[KeyEmailStatus] = EmailSent
		}
	}
	return graph.Success(update)
}

func (n *nodes) interviewScript(ctx context.Context, state graph.State) graph.Result {
	global := report(state, lead.ReportGlobal)
	spin, err := n.Narrator.Generate(ctx, spinQuestionsPrompt, global)
	if err != nil {
		return graph.Failure(err, graph.Update{
			KeyReports: []lead.Report{noteReport(lead.ReportInterview, "No interview script available.")},
		})
	}

	input := fmt.Sprintf("# Lead & company Information:\n\n%s\n\n# SPIN questions:\n\n%s\n", global, spin)
	script, err := n.Narrator.Generate(ctx, interviewScriptPrompt, input)
	if err != nil {
		return graph.Failure(err, graph.Update{KeyReports: []lead.Report{noteReport(lead.ReportInterview, spin)}})
	}
	return graph.Success(graph.Update{KeyReports: []lead.Report{noteReport(lead.ReportInterview, script)}})
}

// saveReports exports every report not exported yet. Export failures are
// logged.
func (n *nodes) saveReports(ctx context.Context, state graph.State) (graph.Update, error) {
	if n.Exporter == nil || !n.cfg.ExportReports {
		return nil, nil
	}
	folder := folderName(state)
	folderLink := graph.Get[string](state, KeyReportsFolderLink)
	outreachDone := graph.Get[string](state, KeyOutreachReportLink) != ""
	for _, r := range reports(state) {
		if r.Title == lead.ReportOutreach && outreachDone {
			continue
		}
		link, err := n.Exporter.Export(ctx, folder, r)
		if err != nil {
			n.Logger.Warn("failed to export %q: %v", r.Title, err)
			continue
		}
		if folderLink == "" {
			folderLink = link.Folder
		}
	}
	return graph.Update{KeyReportsFolderLink: folderLink}, nil
}

// updateCRM writes the outcome back to the source. Sink failures are logged
// and the run moves on.
func (n *nodes) updateCRM(ctx context.Context, state graph.State) (graph.Update, error) {
	rec := currentLead(state)
	verdict := graph.Get[string](state, KeyLeadScore)

	status := n.cfg.UnqualifiedStatus
	if n.cfg.qualified(verdict) {
		status = n.cfg.QualifiedStatus
	}
	fields := map[string]any{
		lead.FieldStatus:        status,
		lead.FieldScore:         verdict,
		lead.FieldReportsLink:   graph.Get[string](state, KeyReportsFolderLink),
		lead.FieldOutreachLink:  graph.Get[string](state, KeyOutreachReportLink),
		lead.FieldLastContacted: n.date(),
	}
	if rec.Profile != "" {
		fields[lead.FieldProfile] = rec.Profile
	}
	if s := graph.Get[string](state, KeyEmailStatus); s != "" {
		fields[lead.FieldEmailStatus] = s
	}

	if _, err := n.Source.Update(ctx, rec.ID, fields); err != nil {
		n.Logger.Error("failed to update lead %s: %v", rec.ID, err)
	}
	return graph.Update{
		KeyRemaining: graph.Get[int](state, KeyRemaining) - 1,
		KeyProcessed: rec.ID,
	}, nil
}

// skipRecord moves on without touching the source.
func (n *nodes) skipRecord(_ context.Context, state graph.State) (graph.Update, error) {
	n.Logger.Info("lead %s not qualified, skipping", currentLead(state).ID)
	return graph.Update{KeyRemaining: graph.Get[int](state, KeyRemaining) - 1}, nil
}
