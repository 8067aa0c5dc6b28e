package bibliometrics

import (
	"github.com/helixir/bibliometrics-service/internal/domain"
	"github.com/helixir/bibliometrics-service/internal/repository"
)

// recentWindow is the number of calendar years, including the current
// one, that count towards recent coauthors.
const recentWindow = 5

// corpus indexes a snapshot for the per-entity passes.
type corpus struct {
	papers         map[int64]repository.PaperStat
	papersByAuthor map[int64][]int64
	authorsByPaper map[int64][]int64
	papersByJrnl   map[int64][]int64
}

func indexSnapshot(snap *repository.Snapshot) *corpus {
	c := &corpus{
		papers:         make(map[int64]repository.PaperStat, len(snap.Papers)),
		papersByAuthor: make(map[int64][]int64),
		authorsByPaper: make(map[int64][]int64),
		papersByJrnl:   make(map[int64][]int64),
	}
	for _, p := range snap.Papers {
		c.papers[p.ID] = p
		if p.JournalID > 0 {
			c.papersByJrnl[p.JournalID] = append(c.papersByJrnl[p.JournalID], p.ID)
		}
	}
	for _, a := range snap.Authorships {
		c.papersByAuthor[a.AuthorID] = append(c.papersByAuthor[a.AuthorID], a.PaperID)
		c.authorsByPaper[a.PaperID] = append(c.authorsByPaper[a.PaperID], a.AuthorID)
	}
	return c
}

// citationsOf returns the citation counts of ids, failing on any paper the
// snapshot does not hold or whose count is negative.
func (c *corpus) citationsOf(entity string, owner int64, ids []int64) ([]repository.PaperStat, error) {
	stats := make([]repository.PaperStat, 0, len(ids))
	for _, id := range ids {
		p, ok := c.papers[id]
		if !ok {
			return nil, domain.NewComputationError(entity, owner, "papers", "linked paper missing from snapshot")
		}
		if p.TotalCitations < 0 {
			return nil, domain.NewComputationError(entity, owner, "total_citations", "negative citation count")
		}
		stats = append(stats, p)
	}
	return stats, nil
}

func computeAuthor(c *corpus, stat repository.AuthorStat, currentYear int) (domain.AuthorMetrics, error) {
	papers, err := c.citationsOf("author", stat.ID, c.papersByAuthor[stat.ID])
	if err != nil {
		return domain.AuthorMetrics{}, err
	}

	m := domain.AuthorMetrics{TotalPapers: len(papers)}
	counts := make([]int, 0, len(papers))
	journals := make(map[int64]struct{})
	firstYear := 0
	for _, p := range papers {
		counts = append(counts, p.TotalCitations)
		m.TotalCitations += p.TotalCitations
		m.MaxCitations = max(m.MaxCitations, p.TotalCitations)
		if p.JournalID > 0 {
			journals[p.JournalID] = struct{}{}
		}
		if p.PublicationYear > 0 && (firstYear == 0 || p.PublicationYear < firstYear) {
			firstYear = p.PublicationYear
		}
	}
	m.TotalJournals = len(journals)
	m.HIndex = HIndex(counts)

	if m.TotalPapers > 0 {
		cpp := float64(m.TotalCitations) / float64(m.TotalPapers)
		m.CitationsPerPaper = &cpp
	}
	if firstYear > 0 {
		age := currentYear - firstYear
		m.FirstPublicationYear = &firstYear
		m.AuthorAge = &age
	}
	if stat.PrevHIndex != nil {
		m.DeltaHIndex = m.HIndex - *stat.PrevHIndex
	}
	if stat.PrevTotalPapers != nil {
		m.DeltaTotalPapers = m.TotalPapers - *stat.PrevTotalPapers
	}
	m.RecentCoauthors = recentCoauthors(c, stat.ID, papers, currentYear)
	return m, nil
}

// recentCoauthors counts distinct other authors on the author's papers
// published within the recent window.
func recentCoauthors(c *corpus, authorID int64, papers []repository.PaperStat, currentYear int) int {
	from := currentYear - recentWindow + 1
	seen := make(map[int64]struct{})
	for _, p := range papers {
		if p.PublicationYear < from || p.PublicationYear > currentYear {
			continue
		}
		for _, other := range c.authorsByPaper[p.ID] {
			if other != authorID {
				seen[other] = struct{}{}
			}
		}
	}
	return len(seen)
}

func computeJournal(c *corpus, stat repository.JournalStat) (domain.JournalMetrics, error) {
	papers, err := c.citationsOf("journal", stat.ID, c.papersByJrnl[stat.ID])
	if err != nil {
		return domain.JournalMetrics{}, err
	}

	m := domain.JournalMetrics{TotalPapersPublished: len(papers)}
	counts := make([]int, 0, len(papers))
	sum := 0
	for _, p := range papers {
		counts = append(counts, p.TotalCitations)
		sum += p.TotalCitations
		m.MaxCitationsPaper = max(m.MaxCitationsPaper, p.TotalCitations)
	}
	m.HIndex = HIndex(counts)

	if m.TotalPapersPublished > 0 {
		mean := float64(sum) / float64(m.TotalPapersPublished)
		m.MeanCitationsPerPaper = &mean
		delta := 0.0
		if stat.PrevMeanCitations != nil {
			delta = mean - *stat.PrevMeanCitations
		}
		m.DeltaMeanCitationsPerPaper = &delta
	}
	if stat.PrevHIndex != nil {
		m.DeltaHIndex = m.HIndex - *stat.PrevHIndex
	}
	if stat.PrevTotalPapers != nil {
		m.DeltaTotalPapersPublished = m.TotalPapersPublished - *stat.PrevTotalPapers
	}
	return m, nil
}

// computePapers derives citations-per-year, its dense rank and the
// citation delta for every valid paper. Papers with negative counts are
// returned as failures and take no rank.
func computePapers(papers []repository.PaperStat, currentYear int) ([]repository.PaperMetricsUpdate, []error) {
	var (
		scored []Scored
		valid  []repository.PaperStat
		errs   []error
	)
	for _, p := range papers {
		if p.TotalCitations < 0 {
			errs = append(errs, domain.NewComputationError("paper", p.ID, "total_citations", "negative citation count"))
			continue
		}
		valid = append(valid, p)
		scored = append(scored, Scored{ID: p.ID, Value: CitationsPerYear(p.TotalCitations, p.PublicationYear, currentYear)})
	}

	ranks := DenseRank(scored)
	updates := make([]repository.PaperMetricsUpdate, 0, len(valid))
	for i, p := range valid {
		delta := 0
		if p.LastTotalCitations != nil {
			delta = p.TotalCitations - *p.LastTotalCitations
		}
		updates = append(updates, repository.PaperMetricsUpdate{
			PaperID:          p.ID,
			CitationsPerYear: scored[i].Value,
			Rank:             ranks[p.ID],
			DeltaCitations:   delta,
			TotalCitations:   p.TotalCitations,
		})
	}
	return updates, errs
}
