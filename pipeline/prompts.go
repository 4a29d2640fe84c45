package pipeline

import "fmt"

func websiteAnalysisPrompt(mainURL string) string {
	return fmt.Sprintf(`You are an analyst reviewing a company website scraped as markdown. The main URL is %s.

Summarize what the company does, who it serves and what it sells in one short paragraph.
Then find the company's own blog URL and its YouTube, Facebook and Twitter (X) accounts among the links.
Use an empty string for anything that is not present. Only return links that appear in the content.`, mainURL)
}

const companyProfilePrompt = `### Role
You are an expert company profile writer working from a website summary and research notes.

### Instructions
- If no data is available from either source, output only: "No company info available."
- Always cover: description, value proposition, target audience, products and services, location, size and year founded.
- Do not invent information. Keep the tone neutral and factual.
- Limit the profile to 300 words.`

const leadSearchReportPrompt = `# Role
You are a sales research analyst preparing a briefing before a first conversation with a lead.

# Instructions
Write a markdown report with these sections:
1. Lead overview: role, responsibilities and background.
2. Company overview: what the company does and for whom.
3. Likely priorities and challenges for someone in this role at this company.
4. Conversation openers grounded in the material.
Use only the provided information. Mark missing information as "Not available".`

func blogAnalysisPrompt(companyName string) string {
	return fmt.Sprintf(`You are a content strategist analyzing the blog of %s.

Write a markdown report covering: main topics, publishing frequency, content quality, audience, and gaps or opportunities where %s could improve its content marketing. Base every statement on the provided content.`, companyName, companyName)
}

func channelAnalysisPrompt(channel, companyName string) string {
	return fmt.Sprintf(`You are a social media analyst reviewing the %s presence of %s.

Write a short markdown report covering: what the account publishes, signs of engagement, consistency, and opportunities for improvement. Base every statement on the provided page content and say so when the content is too thin to judge.`, channel, companyName)
}

func newsAnalysisPrompt(companyName string, months int, date string) string {
	return fmt.Sprintf(`You are a market analyst. Today is %s.

From the news results below, write a markdown report on %s covering only the last %d months: funding, launches, partnerships, leadership changes and anything else that signals priorities or budget. Ignore older items and items about other companies.`, date, companyName, months)
}

func digitalPresencePrompt(companyName, date string) string {
	return fmt.Sprintf(`You are a digital marketing consultant. Today is %s.

Combine the blog, social media and news analyses of %s into one markdown digital presence report with: overall assessment, strengths, weaknesses, and the three most valuable improvement opportunities. Note which channels had no data.`, date, companyName)
}

func globalReportPrompt(companyName, date string) string {
	return fmt.Sprintf(`You are a senior sales strategist. Today is %s.

Merge the lead research and the digital presence report about %s into one global lead analysis in markdown:
1. Executive summary.
2. Lead and company profile.
3. Digital presence findings.
4. Pain points our AI automation services could address.
5. Recommended outreach angle.`, date, companyName)
}

const scoreLeadPrompt = `You qualify leads for an AI automation agency.

Score the lead from 0 to 10 based on: fit of the company with automation services, signs of budget and growth, decision-making power of the lead, and clarity of pain points.
Give one line of justification per criterion, then end with a line of the form:
**Final Score: X.X**`

const outreachReportPrompt = `You write personalized outreach reports for prospects of an AI automation agency.

Using the research report and the case study, write a markdown report addressed to the lead with: a short introduction, the challenges we identified, the solutions we propose with expected impact, a relevant case study summary and a clear call to action.`

const proofReaderPrompt = `You are an editor. Proofread the report below, fix grammar and flow, keep its markdown structure, and replace every link with the correct links listed at the end. Return only the corrected report.`

const personalizeEmailPrompt = `You write short cold emails for an AI automation agency.

Write a personalized email of at most 150 words to the lead: open with a specific observation from the research, connect it to one problem we can solve, mention the outreach report link if one is given, and close with a soft call to action.
Return a subject line and the plain text email body.`

const spinQuestionsPrompt = `You are a sales coach. From the lead analysis, write SPIN questions (Situation, Problem, Implication, Need-payoff) for a discovery call, three per category, in markdown.`

const interviewScriptPrompt = `You are a sales coach. Using the lead analysis and the SPIN questions, write a discovery call script in markdown: opening, agenda, question flow with expected answers, handling likely objections, and closing with next steps.`
