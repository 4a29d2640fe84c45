// Package research gathers public information about a lead and their
// company.
//
// It has two kinds of building blocks. A Scraper turns a web page into
// markdown plus its outbound links, and a Searcher runs web searches through
// Brave or Serper. ResearchLead, ResearchCompany and RecentNews combine them
// with a narrative.Narrator to produce the text the pipeline works from.
package research
