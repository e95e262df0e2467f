package intelligence

// Static per-analyzer fallbacks. An analyzer that errors or times out is
// replaced field for field by one of these.

func FallbackSimilarity() Similarity {
	return Similarity{Source: SourceFallback, Matches: []Match{}, DataQuality: 50}
}

func FallbackSeasonal() Seasonal {
	return Seasonal{Source: SourceFallback, CurrentPattern: "STANDARD", DataQuality: 50}
}

func FallbackMarket() Market {
	return Market{Source: SourceFallback, Volatility: 0.5, DataQuality: 50}
}

func FallbackPatterns() Patterns {
	return Patterns{Source: SourceFallback, Patterns: []Pattern{}, DataQuality: 50}
}

func FallbackShipping() Shipping {
	return Shipping{Source: SourceFallback, ConstraintLevel: "MEDIUM", Utilization: 75, Confidence: 65, DataQuality: 50}
}
