package pipeline

import (
	"context"

	"github.com/smallnest/leadgraph/graph"
	"github.com/smallnest/leadgraph/lead"
	"github.com/smallnest/leadgraph/log"
)

// Node names of the outreach graph.
const (
	NodeFetchLeads            = "fetch_leads"
	NodeNextLead              = "next_lead"
	NodeResearchLead          = "research_lead"
	NodeReviewWebsite         = "review_company_website"
	NodeCollectInformation    = "collect_company_information"
	NodeAnalyzeBlog           = "analyze_blog"
	NodeAnalyzeSocialMedia    = "analyze_social_media"
	NodeAnalyzeRecentNews     = "analyze_recent_news"
	NodeDigitalPresenceReport = "generate_digital_presence_report"
	NodeFullResearchReport    = "generate_full_research_report"
	NodeScoreLead             = "score_lead"
	NodeQualificationGate     = "qualification_gate"
	NodeOutreachMaterials     = "create_outreach_materials"
	NodeOutreachReport        = "generate_outreach_report"
	NodePersonalizedEmail     = "generate_personalized_email"
	NodeInterviewScript       = "generate_interview_script"
	NodeAwaitReports          = "await_reports"
	NodeSaveReports           = "save_reports"
	NodeUpdateCRM             = "update_crm"
	NodeSkipRecord            = "skip_record"
)

// NewGraph wires the outreach graph. Dependencies are not checked so the
// graph can be drawn without live collaborators; use Build to run it.
func NewGraph(deps Deps, cfg Config) *graph.Graph {
	if deps.Logger == nil {
		deps.Logger = log.GetDefaultLogger()
	}
	n := &nodes{Deps: deps, cfg: cfg.withDefaults()}
	timeout := n.cfg.NodeTimeout
	bounded := func(fn graph.BestEffortFunc, placeholder graph.Update) graph.BestEffortFunc {
		return graph.BestEffortWithTimeout(fn, timeout, placeholder)
	}
	placeholder := func(title, content string) graph.Update {
		return graph.Update{KeyReports: []lead.Report{noteReport(title, content)}}
	}

	g := graph.NewGraph(NewSchema())

	g.AddNodeWithRetry(NodeFetchLeads, "Load the records to process from the lead source",
		graph.WithTimeout(n.fetchLeads, n.cfg.FetchTimeout), n.cfg.fetchRetry())
	g.AddNode(NodeNextLead, "Select the next record and reset per-record state", n.nextLead)
	g.AddBestEffortNode(NodeResearchLead, "Research the lead and their company on the web",
		bounded(n.researchLead, nil))
	g.AddBestEffortNode(NodeReviewWebsite, "Analyze the company website and write the general report",
		bounded(n.reviewWebsite, nil))
	g.AddNode(NodeCollectInformation, "Start digital presence analysis", pass)
	g.AddBestEffortNode(NodeAnalyzeBlog, "Analyze the company blog",
		bounded(n.analyzeBlog, placeholder(lead.ReportBlog, "No blog content available (analysis timed out)")))
	g.AddBestEffortNode(NodeAnalyzeSocialMedia, "Analyze YouTube, Facebook and Twitter pages",
		bounded(n.analyzeSocialMedia, nil))
	g.AddBestEffortNode(NodeAnalyzeRecentNews, "Analyze recent company news",
		bounded(n.analyzeRecentNews, placeholder(lead.ReportNews, "No recent news available (analysis timed out)")))
	g.AddBestEffortNode(NodeDigitalPresenceReport, "Summarize the digital presence",
		bounded(n.digitalPresenceReport, placeholder(lead.ReportDigitalPresence, "Digital presence analysis unavailable.")))
	g.AddBestEffortNode(NodeFullResearchReport, "Write the global lead analysis",
		bounded(n.fullResearchReport, nil))
	g.AddBestEffortNode(NodeScoreLead, "Score the lead against the ideal customer profile",
		bounded(n.scoreLead, graph.Update{KeyLeadScore: ""}))
	g.AddNode(NodeQualificationGate, "Branch on the lead score", pass)
	g.AddNode(NodeOutreachMaterials, "Start outreach material generation", pass)
	g.AddBestEffortNode(NodeOutreachReport, "Write and proofread the outreach report",
		bounded(n.outreachReport, nil))
	g.AddBestEffortNode(NodePersonalizedEmail, "Write, draft and optionally send the personalized email",
		bounded(n.personalizedEmail, graph.Update{KeyEmailStatus: EmailNotGenerated}))
	g.AddBestEffortNode(NodeInterviewScript, "Write the discovery call script",
		bounded(n.interviewScript, placeholder(lead.ReportInterview, "No interview script available.")))
	g.AddNode(NodeAwaitReports, "Wait for outreach materials", pass)
	g.AddNode(NodeSaveReports, "Export the reports of the current record", n.saveReports)
	g.AddNode(NodeUpdateCRM, "Write the outcome back to the lead source", n.updateCRM)
	g.AddNode(NodeSkipRecord, "Move on without touching the lead source", n.skipRecord)

	g.SetEntryPoint(NodeFetchLeads)

	more := graph.Router{Name: "more_leads", Labels: []string{"found", "none"}, Route: moreLeads}
	loop := map[string]string{"found": NodeNextLead, "none": graph.END}
	g.AddConditionalEdges(NodeFetchLeads, more, loop)

	g.AddEdge(NodeNextLead, NodeResearchLead)
	g.AddEdge(NodeResearchLead, NodeReviewWebsite)
	g.AddEdge(NodeReviewWebsite, NodeCollectInformation)
	g.AddFanOut(NodeCollectInformation,
		[]string{NodeAnalyzeBlog, NodeAnalyzeSocialMedia, NodeAnalyzeRecentNews},
		NodeDigitalPresenceReport)
	g.AddEdge(NodeDigitalPresenceReport, NodeFullResearchReport)
	g.AddEdge(NodeFullResearchReport, NodeScoreLead)
	g.AddEdge(NodeScoreLead, NodeQualificationGate)

	notQualified := NodeUpdateCRM
	if n.cfg.NotQualifiedRoute == RouteSkip {
		notQualified = NodeSkipRecord
	}
	g.AddConditionalEdges(NodeQualificationGate,
		graph.Router{Name: "is_qualified", Labels: []string{"qualified", "not_qualified"}, Route: n.isQualified},
		map[string]string{"qualified": NodeOutreachMaterials, "not_qualified": notQualified})

	g.AddEdge(NodeOutreachMaterials, NodeOutreachReport)
	g.AddFanOut(NodeOutreachReport,
		[]string{NodePersonalizedEmail, NodeInterviewScript},
		NodeAwaitReports)
	g.AddEdge(NodeAwaitReports, NodeSaveReports)
	g.AddEdge(NodeSaveReports, NodeUpdateCRM)

	g.AddConditionalEdges(NodeUpdateCRM, more, loop)
	g.AddConditionalEdges(NodeSkipRecord, more, loop)
	return g
}

// Build checks deps and compiles the outreach graph.
func Build(deps Deps, cfg Config) (*graph.Runnable, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return NewGraph(deps, cfg).Compile()
}

// Summary describes a finished run.
type Summary struct {
	Processed []string
	Remaining int
	LastScore string
}

// Run processes the records with the given ids, or every NEW record when ids
// is empty. The summary reflects the state reached also when err is not nil.
func Run(ctx context.Context, r *graph.Runnable, ids []string, config *graph.Config) (Summary, error) {
	initial := graph.Update{}
	if len(ids) > 0 {
		initial[KeyLeadIDs] = ids
	}
	state, err := r.InvokeWithConfig(ctx, initial, config)
	return Summary{
		Processed: graph.Get[[]string](state, KeyProcessed),
		Remaining: graph.Get[int](state, KeyRemaining),
		LastScore: graph.Get[string](state, KeyLeadScore),
	}, err
}
