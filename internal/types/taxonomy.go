package types

// ScamClassifiers is the fixed taxonomy of blame classes that can be attached
// to a subject. The labels are part of the proxy contract and must match the
// classifier vocabulary server-side.
var ScamClassifiers = []string{
	"Promoting a scam",
	"Promoting pump & dump scheme",
	"Promoting a rug pull",
	"Partnering with scam project",
	"Partnering with scammer",
	"Irresponsible promotion",
	"Fake giveaways & airdrops",
	"Fake engagement farming",
	"Spreading misinformation",
	"Shilling low-liquidity tokens",
	"Using bot-driven manipulation",
	"Paid promotions without disclosure",
	"Multi-account astroturfing",
	"Promoting hacked wallets/tools",
	"Artificially inflating project hype",
	"Associating with known fraudsters",
	"Promoting Ponzi-like structures",
	"Encouraging FOMO-based investing",
	"Soliciting private keys or seed phrases",
	"Pump group leader/whale manipulation",
}

// IsKnownClassifier reports whether the label belongs to the taxonomy.
func IsKnownClassifier(label string) bool {
	for _, c := range ScamClassifiers {
		if c == label {
			return true
		}
	}
	return false
}
