package matcher

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"bankrec-engine/internal/domain"
)

const (
	StrategyExactName    = "exact_name"
	StrategyTokenOverlap = "token_overlap"
	StrategyHistorical   = "historical"

	exactNameConfidence     = 1.0
	tokenOverlapWeight      = 0.9
	minTokenOverlapRatio    = 0.5
	fuzzyTokenMinRunes      = 5
	historicalWeight        = 0.7
	minHistoricalSimilarity = 0.75
)

// unit-cost edits; DefaultOptions charges 2 for a substitution
var editOptions = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: levenshtein.IdenticalRunes,
}

// Suggestion is the counterpart matcher's output. A zero Confidence means no counterpart.
type Suggestion struct {
	SupplierID       string  `json:"supplier_id,omitempty"`
	SupplierName     string  `json:"supplier_name,omitempty"`
	AccountID        string  `json:"account_id,omitempty"`
	DocumentTypeCode string  `json:"document_type_code,omitempty"`
	PaymentTypeCode  string  `json:"payment_type_code,omitempty"`
	Confidence       float64 `json:"confidence"`
	Strategy         string  `json:"strategy,omitempty"`
}

// Found reports whether a counterpart was identified
func (s Suggestion) Found() bool {
	return s.Confidence > 0 && s.AccountID != ""
}

// HistoryEntry is a past manual reconciliation of the same venue
type HistoryEntry struct {
	Description string
	AccountID   string
}

type supplierIndex struct {
	supplier    domain.Supplier
	normalized  string
	tokens      []string
	significant []string
}

type historyIndex struct {
	entry HistoryEntry
	payee string
}

// Snapshot is an immutable, pre-normalized view of the reference data of one venue.
// It is safe for concurrent use.
type Snapshot struct {
	suppliers []supplierIndex
	history   []historyIndex
	byAccount map[string]domain.Supplier
}

// NewSnapshot indexes suppliers and manual history for matching
func NewSnapshot(suppliers []domain.Supplier, history []HistoryEntry) *Snapshot {
	snap := &Snapshot{byAccount: make(map[string]domain.Supplier)}

	for _, s := range suppliers {
		tokens := Tokens(s.Name)
		if len(tokens) == 0 || s.DefaultAccountID == "" {
			continue
		}
		snap.suppliers = append(snap.suppliers, supplierIndex{
			supplier:    s,
			normalized:  strings.Join(tokens, " "),
			tokens:      tokens,
			significant: significantTokens(tokens),
		})
	}
	sort.Slice(snap.suppliers, func(i, j int) bool {
		return snap.suppliers[i].normalized < snap.suppliers[j].normalized
	})
	for _, idx := range snap.suppliers {
		if _, ok := snap.byAccount[idx.supplier.DefaultAccountID]; !ok {
			snap.byAccount[idx.supplier.DefaultAccountID] = idx.supplier
		}
	}

	for _, h := range history {
		payee := payeeText(h.Description)
		if payee == "" || h.AccountID == "" {
			continue
		}
		snap.history = append(snap.history, historyIndex{entry: h, payee: payee})
	}

	return snap
}

// CounterpartStrategy identifies the counterpart of a bank movement
type CounterpartStrategy interface {
	Name() string
	Match(description string, snap *Snapshot) (Suggestion, bool)
}

// ExactNameStrategy finds supplier names occurring as whole tokens in the description
type ExactNameStrategy struct{}

func (s *ExactNameStrategy) Name() string { return StrategyExactName }

func (s *ExactNameStrategy) Match(description string, snap *Snapshot) (Suggestion, bool) {
	desc := Tokens(description)

	var best *supplierIndex
	for i := range snap.suppliers {
		cand := &snap.suppliers[i]
		if !containsSequence(desc, cand.tokens) {
			continue
		}
		// the longest name is the most specific; suppliers are sorted by name
		if best == nil || len(cand.tokens) > len(best.tokens) {
			best = cand
		}
	}
	if best == nil {
		return Suggestion{}, false
	}
	return suggestionFor(best.supplier, exactNameConfidence, StrategyExactName), true
}

// TokenOverlapStrategy scores suppliers by the share of their significant tokens
// present in the description, tolerating one typo in longer tokens.
type TokenOverlapStrategy struct{}

func (s *TokenOverlapStrategy) Name() string { return StrategyTokenOverlap }

func (s *TokenOverlapStrategy) Match(description string, snap *Snapshot) (Suggestion, bool) {
	desc := significantTokens(Tokens(description))
	if len(desc) == 0 {
		return Suggestion{}, false
	}

	var (
		best      *supplierIndex
		bestRatio float64
	)
	for i := range snap.suppliers {
		cand := &snap.suppliers[i]
		if len(cand.significant) == 0 {
			continue
		}
		hits := 0
		for _, tok := range cand.significant {
			if tokenPresent(tok, desc) {
				hits++
			}
		}
		ratio := float64(hits) / float64(len(cand.significant))
		if hits == 0 || ratio < minTokenOverlapRatio {
			continue
		}
		if ratio > bestRatio {
			best, bestRatio = cand, ratio
		}
	}
	if best == nil {
		return Suggestion{}, false
	}
	return suggestionFor(best.supplier, tokenOverlapWeight*bestRatio, StrategyTokenOverlap), true
}

func tokenPresent(tok string, desc []string) bool {
	long := utf8.RuneCountInString(tok) >= fuzzyTokenMinRunes
	for _, d := range desc {
		if d == tok {
			return true
		}
		if long && utf8.RuneCountInString(d) >= fuzzyTokenMinRunes && editDistance(d, tok) <= 1 {
			return true
		}
	}
	return false
}

// HistoricalStrategy reuses the account of the most similar past manual reconciliation
type HistoricalStrategy struct{}

func (s *HistoricalStrategy) Name() string { return StrategyHistorical }

func (s *HistoricalStrategy) Match(description string, snap *Snapshot) (Suggestion, bool) {
	payee := payeeText(description)
	if payee == "" {
		return Suggestion{}, false
	}

	var (
		best    *historyIndex
		bestSim float64
	)
	for i := range snap.history {
		cand := &snap.history[i]
		sim := similarity(payee, cand.payee)
		if sim < minHistoricalSimilarity {
			continue
		}
		if sim > bestSim || sim == bestSim && cand.entry.AccountID < best.entry.AccountID {
			best, bestSim = cand, sim
		}
	}
	if best == nil {
		return Suggestion{}, false
	}

	suggestion := Suggestion{
		AccountID:  best.entry.AccountID,
		Confidence: historicalWeight * bestSim,
		Strategy:   StrategyHistorical,
	}
	if sup, ok := snap.byAccount[best.entry.AccountID]; ok {
		suggestion.SupplierID = sup.ID
		suggestion.SupplierName = sup.Name
		suggestion.DocumentTypeCode = sup.DocumentTypeCode
		suggestion.PaymentTypeCode = sup.PaymentTypeCode
	}
	return suggestion, true
}

// payeeText strips amounts, dates and invoice numbers from a description
func payeeText(description string) string {
	var kept []string
	for _, tok := range Tokens(description) {
		if isNumeric(tok) {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

func editDistance(a, b string) int {
	return levenshtein.DistanceForStrings([]rune(a), []rune(b), editOptions)
}

// similarity is 1 - distance/longest, in [0,1]
func similarity(a, b string) float64 {
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(editDistance(a, b))/float64(longest)
}

func suggestionFor(s domain.Supplier, confidence float64, strategy string) Suggestion {
	return Suggestion{
		SupplierID:       s.ID,
		SupplierName:     s.Name,
		AccountID:        s.DefaultAccountID,
		DocumentTypeCode: s.DocumentTypeCode,
		PaymentTypeCode:  s.PaymentTypeCode,
		Confidence:       confidence,
		Strategy:         strategy,
	}
}

// CounterpartMatcher runs its strategies in order; the first one that finds
// a counterpart decides.
type CounterpartMatcher struct {
	strategies []CounterpartStrategy
}

// NewCounterpartMatcher uses exact name, token overlap and history when no strategies are given
func NewCounterpartMatcher(strategies ...CounterpartStrategy) *CounterpartMatcher {
	if len(strategies) == 0 {
		strategies = []CounterpartStrategy{
			&ExactNameStrategy{},
			&TokenOverlapStrategy{},
			&HistoricalStrategy{},
		}
	}
	return &CounterpartMatcher{strategies: strategies}
}

// Match returns the counterpart suggestion for tx, or a zero Suggestion
func (m *CounterpartMatcher) Match(tx *domain.BankTransaction, snap *Snapshot) Suggestion {
	if snap == nil {
		return Suggestion{}
	}
	for _, strategy := range m.strategies {
		if s, ok := strategy.Match(tx.Description, snap); ok {
			return s
		}
	}
	return Suggestion{}
}
