// Leadgraph - Lead Research and Outreach Workflows in Go
//
// Leadgraph runs every new lead of a contact database through a graph-based
// workflow: web research on the person and their company, analysis of the
// company's website, blog, social channels and recent news, an LLM-written
// score, and, for qualified leads, an outreach report, an interview script and
// a personalized email. Every processed lead is written back to its source.
//
// # Quick Start
//
// Install the command:
//
//	go install github.com/smallnest/leadgraph/cmd/leadgraph@latest
//
// Write a configuration (secrets may come from the environment or a .env
// file):
//
//	source:
//	  kind: csv
//	  path: leads.csv
//	  write_back: true
//	llm:
//	  provider: openai
//	  model: gpt-4o-mini
//	  api_key: ${OPENAI_API_KEY}
//	search:
//	  provider: serper
//	  api_key: ${SERPER_API_KEY}
//	pipeline:
//	  qualify_threshold: 7
//	  case_study_link: https://example.com/case-study
//
// and run it:
//
//	leadgraph run -c leadgraph.yaml --dry-run
//	leadgraph graph > workflow.mmd
//
// # Embedding the Workflow
//
//	r, err := pipeline.Build(pipeline.Deps{
//		Source:    memory.New(records...),
//		Narrator:  narrator,
//		Searcher:  searcher,
//		Scraper:   research.NewHTTPScraper(),
//		Deliverer: &outreach.Outbox{},
//		Exporter:  export.NewLocalDir("reports"),
//	}, pipeline.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	summary, err := pipeline.Run(ctx, r, nil, &graph.Config{StepBound: 2000})
//
// # Package Structure
//
// graph/
// The workflow engine: state schema with per-field reducers, nodes, fan-out
// with joins, routers, the step bound, tracing and Mermaid/DOT export.
//
// lead/
// Lead records, company profiles, reports and the Source interface.
//
// source/
// Lead sources: memory, csv, postgres, sqlite, redis and the Apollo API,
// selected by kind with source.Open.
//
// research/
// Web scraping, Serper and Brave search, and lead/company research helpers.
//
// narrative/
// LLM text generation through go-openai or any langchaingo model.
//
// outreach/
// Email drafts and delivery with open tracking.
//
// export/
// Report export to a local directory as markdown and sanitized HTML.
//
// pipeline/
// The outreach workflow itself.
//
// config/ and cmd/leadgraph/
// YAML configuration and the command line.
package leadgraph // import "github.com/smallnest/leadgraph"
