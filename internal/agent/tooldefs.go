package agent

import "github.com/carloscae/E2-Outreach-Dashboard/internal/llm"

func searchNewsDefinition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "search_industry_news",
		Description: "Search betting industry news from NewsAPI and curated RSS feeds. Returns articles matching the keywords, newest and highest quality first.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"keywords": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Keywords to search for, combined with OR",
				},
				"language": map[string]any{
					"type":        "string",
					"description": "ISO language code, e.g. 'pt' or 'en'",
				},
			},
			"required": []string{"keywords"},
		},
	}
}

func socialSentimentDefinition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "search_social_sentiment",
		Description: "Search Reddit for public mentions of an entity and classify sentiment of the discussion.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"entity_name": map[string]any{
					"type":        "string",
					"description": "Company or brand name to search for",
				},
			},
			"required": []string{"entity_name"},
		},
	}
}

func trendInterestDefinition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "check_trend_interest",
		Description: "Check 30-day search interest for a keyword and classify the trend as rising, stable or declining.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"keyword": map[string]any{
					"type":        "string",
					"description": "Keyword to check, usually a brand name",
				},
			},
			"required": []string{"keyword"},
		},
	}
}

func checkPartnershipDefinition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "check_partnership",
		Description: "Check whether an entity is already in the E2 bookmaker roster. Returns the partnership tier: NEW_PROSPECT, KNOWN_BOOKIE or AFFILIATE_PARTNER. Skip storing signals for AFFILIATE_PARTNER entities.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"entity_name": map[string]any{
					"type":        "string",
					"description": "Entity name to look up",
				},
			},
			"required": []string{"entity_name"},
		},
	}
}

func analyzeSiteDefinition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "analyze_site_for_betting",
		Description: "Fetch a publisher website and detect existing betting integrations (odds widgets, affiliate links, bookmaker iframes, betting scripts).",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "Full URL of the site to analyze",
				},
			},
			"required": []string{"url"},
		},
	}
}

func storeSignalDefinition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "store_signal",
		Description: "Persist a discovered market signal with its evidence. Call once per distinct opportunity. Reasoning is mandatory.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"entity_name": map[string]any{
					"type":        "string",
					"description": "Name of the entity the signal is about",
				},
				"entity_type": map[string]any{
					"type":        "string",
					"enum":        []string{"bookmaker", "publisher", "app", "channel"},
					"description": "Kind of entity",
				},
				"geo": map[string]any{
					"type":        "string",
					"description": "ISO country code, e.g. BR",
				},
				"signal_type": map[string]any{
					"type":        "string",
					"description": "What happened, e.g. market_entry, expansion, sponsorship, licensing, growth",
				},
				"evidence_headline": map[string]any{
					"type":        "string",
					"description": "Headline of the supporting evidence",
				},
				"evidence_url": map[string]any{
					"type":        "string",
					"description": "Link to the supporting evidence",
				},
				"evidence_source": map[string]any{
					"type":        "string",
					"description": "Where the evidence came from",
				},
				"evidence_description": map[string]any{
					"type":        "string",
					"description": "Short summary of the evidence",
				},
				"preliminary_score": map[string]any{
					"type":        "number",
					"description": "Initial opportunity score from 0 to 10",
				},
				"reasoning": map[string]any{
					"type":        "string",
					"description": "Why this is a real opportunity",
				},
				"signal_category": map[string]any{
					"type":        "string",
					"description": "Search category that surfaced the signal",
				},
			},
			"required": []string{"entity_name", "signal_type", "preliminary_score", "reasoning"},
		},
	}
}

func discoverPublishersDefinition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "discover_publishers",
		Description: "Discover Brazilian sports publishers through curated Google searches. Returns distinct publisher domains with the page title that surfaced them.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of publishers to return",
				},
			},
		},
	}
}

func searchPublishersDefinition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "search_specific_publishers",
		Description: "Run a custom Google search for publishers in a niche, e.g. a specific sport, state or content format.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search query, Portuguese works best for the Brazil market",
				},
			},
			"required": []string{"query"},
		},
	}
}

func analyzePublisherDefinition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "analyze_publisher",
		Description: "Fetch a publisher website and detect existing betting integrations (odds widgets, affiliate links, bookmaker iframes, betting scripts). A clean site is the opportunity.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "Full URL of the publisher site",
				},
			},
			"required": []string{"url"},
		},
	}
}

func publisherTrafficDefinition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "check_publisher_traffic",
		Description: "Estimate a publisher's audience from its search footprint. Returns a 1-10 traffic proxy, total result volume and top mentions.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"publisher_name": map[string]any{
					"type":        "string",
					"description": "Publisher brand name to check",
				},
			},
			"required": []string{"publisher_name"},
		},
	}
}

func storePublisherSignalDefinition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "store_publisher_signal",
		Description: "Persist a publisher opportunity with its evidence. Call once per distinct publisher. Reasoning is mandatory.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"publisher_name": map[string]any{
					"type":        "string",
					"description": "Publisher brand name",
				},
				"publisher_url": map[string]any{
					"type":        "string",
					"description": "Publisher homepage URL",
				},
				"sports_focus": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Sports the publisher covers, e.g. futebol, basquete",
				},
				"traffic_score": map[string]any{
					"type":        "integer",
					"description": "1-10 traffic proxy from check_publisher_traffic",
				},
				"betting_detection": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"has_betting": map[string]any{"type": "boolean"},
						"confidence":  map[string]any{"type": "number"},
					},
					"description": "Outcome of analyze_publisher",
				},
				"preliminary_score": map[string]any{
					"type":        "number",
					"description": "Initial opportunity score from 0 to 10",
				},
				"reasoning": map[string]any{
					"type":        "string",
					"description": "Why this publisher is a real opportunity",
				},
			},
			"required": []string{"publisher_name", "publisher_url", "sports_focus", "preliminary_score", "reasoning"},
		},
	}
}

func scoreSignalDefinition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "score_signal",
		Description: "Record the final rubric scores for one signal. Sub-scores are clamped to their ranges and the final score is their sum.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"signal_id": map[string]any{
					"type":        "string",
					"description": "ID of the signal being scored",
				},
				"market_entry_momentum": map[string]any{
					"type":        "integer",
					"description": "0-4",
				},
				"e2_partnership_fit": map[string]any{
					"type":        "integer",
					"description": "0-4",
				},
				"actionability": map[string]any{
					"type":        "integer",
					"description": "0-3",
				},
				"data_confidence": map[string]any{
					"type":        "integer",
					"description": "0-3",
				},
				"risk_flags": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"regulatory":   map[string]any{"type": "boolean"},
						"reputational": map[string]any{"type": "boolean"},
						"financial":    map[string]any{"type": "boolean"},
						"notes": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
					},
				},
				"recommended_actions": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Concrete next steps for the outreach team",
				},
				"reasoning": map[string]any{
					"type":        "string",
					"description": "Explanation of the scoring decision",
				},
			},
			"required": []string{"signal_id", "market_entry_momentum", "e2_partnership_fit", "actionability", "data_confidence", "reasoning"},
		},
	}
}

func reportSectionDefinition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "generate_report_section",
		Description: "Write one narrative section of the report. Call once per section.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"section": map[string]any{
					"type":        "string",
					"enum":        []string{"executive_summary", "market_trends", "recommendations"},
					"description": "Which section this content belongs to",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Markdown content of the section",
				},
			},
			"required": []string{"section", "content"},
		},
	}
}

func finalizeReportDefinition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "finalize_report",
		Description: "Mark the report narrative as complete. Call after every section has been generated.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "Title for the report",
				},
			},
		},
	}
}
