package reconcile

import (
	"fmt"
	"slices"

	"github.com/zjrosen/conceptual/internal/log"
	"github.com/zjrosen/conceptual/internal/state"
)

// Severity classifies a sync message.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ElementType names the kind of element a message refers to.
type ElementType string

const (
	ElementConcept      ElementType = "concept"
	ElementRelationship ElementType = "relationship"
	ElementDomain       ElementType = "domain"
)

// Message is one finding of the sync pass.
type Message struct {
	ID          string      `json:"id"`
	Severity    Severity    `json:"severity"`
	Text        string      `json:"text"`
	ElementType ElementType `json:"element_type,omitempty"`
	ElementID   string      `json:"element_id,omitempty"`
}

// SyncReport is the result of ValidateAndSync. The counts always tally
// Messages.
type SyncReport struct {
	Messages     []Message `json:"messages"`
	ErrorCount   int       `json:"error_count"`
	WarningCount int       `json:"warning_count"`
	InfoCount    int       `json:"info_count"`
}

// HasErrors reports whether any message has error severity.
func (r SyncReport) HasErrors() bool {
	return r.ErrorCount > 0
}

// ghostMessage is the annotation carried by every ghost concept.
const ghostMessage = "Referenced but not defined"

type syncer struct {
	st       *state.ProjectState
	messages []Message
}

func (s *syncer) emit(sev Severity, kind ElementType, id, format string, args ...any) {
	s.messages = append(s.messages, Message{
		ID:          fmt.Sprintf("msg-%d", len(s.messages)+1),
		Severity:    sev,
		Text:        fmt.Sprintf(format, args...),
		ElementType: kind,
		ElementID:   id,
	})
}

// ValidateAndSync creates ghost concepts for dangling relationship
// endpoints and annotates st with structural findings. st is mutated in
// place. Running it again on the same state emits no ghost messages.
func ValidateAndSync(st *state.ProjectState) SyncReport {
	s := &syncer{st: st}

	s.resetAnnotations()
	s.createGhosts()
	s.checkDuplicateNames()
	s.checkDuplicateRelationships()
	s.checkEmptyDomains()

	synced := 0
	for _, c := range st.Concepts {
		if !c.IsGhost {
			synced++
		}
	}
	s.emit(SeverityInfo, "", "", "Synced %d concepts from conceptual.yml", synced)

	report := SyncReport{Messages: s.messages}
	for _, m := range s.messages {
		switch m.Severity {
		case SeverityError:
			report.ErrorCount++
		case SeverityWarning:
			report.WarningCount++
		case SeverityInfo:
			report.InfoCount++
		}
	}

	log.Debug(log.CatReconcile, "Sync complete",
		"errors", report.ErrorCount,
		"warnings", report.WarningCount,
		"infos", report.InfoCount)
	return report
}

// resetAnnotations clears findings from a previous pass on everything the
// pass recomputes. Ghosts keep their annotation.
func (s *syncer) resetAnnotations() {
	for _, c := range s.st.Concepts {
		if c.IsGhost {
			continue
		}
		c.ValidationStatus = state.ValidationValid
		c.ValidationMessages = nil
	}
	for _, r := range s.st.Relationships {
		r.ValidationStatus = state.ValidationValid
		r.ValidationMessages = nil
	}
}

type danglingRef struct {
	relKey  string
	concept string
	source  bool
}

// createGhosts collects every missing endpoint first and only then inserts
// ghosts, so the concept map is never mutated while being consulted.
func (s *syncer) createGhosts() {
	var refs []danglingRef
	for _, key := range s.st.RelationshipKeys() {
		r := s.st.Relationships[key]
		for _, end := range []struct {
			id     string
			source bool
		}{{r.From, true}, {r.To, false}} {
			c, ok := s.st.Concepts[end.id]
			switch {
			case !ok:
				refs = append(refs, danglingRef{relKey: key, concept: end.id, source: end.source})
			case c.IsGhost:
				// Ghost from an earlier pass: annotate without new messages.
				markRelationshipError(r, end.id, end.source)
			}
		}
	}

	for _, ref := range refs {
		_, exists := s.st.Concepts[ref.concept]
		if !exists {
			s.st.Concepts[ref.concept] = &state.Concept{
				Name:               ref.concept,
				Models:             []string{},
				IsGhost:            true,
				ValidationStatus:   state.ValidationError,
				ValidationMessages: []string{ghostMessage},
			}
			log.Debug(log.CatReconcile, "Created ghost concept", "concept", ref.concept, "relationship", ref.relKey)
		}
		s.emit(SeverityError, ElementRelationship, ref.relKey,
			"Relationship '%s' references non-existent concept '%s'", ref.relKey, ref.concept)
		if !exists {
			s.emit(SeverityWarning, ElementConcept, ref.concept,
				"Ghost created for concept '%s'", ref.concept)
		}
		markRelationshipError(s.st.Relationships[ref.relKey], ref.concept, ref.source)
	}
}

func markRelationshipError(r *state.Relationship, concept string, source bool) {
	role := "Target"
	if source {
		role = "Source"
	}
	msg := fmt.Sprintf("%s concept '%s' not defined", role, concept)
	r.ValidationStatus = state.ValidationError
	if !slices.Contains(r.ValidationMessages, msg) {
		r.ValidationMessages = append(r.ValidationMessages, msg)
	}
}

func markConceptError(c *state.Concept, msg string) {
	c.ValidationStatus = state.ValidationError
	if !slices.Contains(c.ValidationMessages, msg) {
		c.ValidationMessages = append(c.ValidationMessages, msg)
	}
}

// checkDuplicateNames flags non-ghost concepts sharing a display name. The
// error names each later declaration; the first one is only marked.
func (s *syncer) checkDuplicateNames() {
	first := make(map[string]string)
	for _, id := range s.st.DeclaredConceptIDs() {
		c := s.st.Concepts[id]
		if c.IsGhost {
			continue
		}
		firstID, seen := first[c.Name]
		if !seen {
			first[c.Name] = id
			continue
		}
		s.emit(SeverityError, ElementConcept, id, "Duplicate concept name '%s'", c.Name)
		msg := "Duplicate name: " + c.Name
		markConceptError(c, msg)
		markConceptError(s.st.Concepts[firstID], msg)
	}
}

// checkDuplicateRelationships flags every repeated declaration of the same
// from:verb:to key after the first.
func (s *syncer) checkDuplicateRelationships() {
	seen := make(map[string]bool)
	for _, key := range s.st.RelationshipOrder {
		if !seen[key] {
			seen[key] = true
			continue
		}
		r, ok := s.st.Relationships[key]
		if !ok {
			continue
		}
		s.emit(SeverityError, ElementRelationship, key, "Duplicate relationship '%s'", key)
		r.ValidationStatus = state.ValidationError
		if !slices.Contains(r.ValidationMessages, "Duplicate relationship") {
			r.ValidationMessages = append(r.ValidationMessages, "Duplicate relationship")
		}
	}
}

func (s *syncer) checkEmptyDomains() {
	counts := make(map[string]int, len(s.st.Domains))
	for _, c := range s.st.Concepts {
		if c.IsGhost || c.Domain == "" {
			continue
		}
		counts[c.Domain]++
	}
	for _, id := range s.st.DomainIDs() {
		if counts[id] == 0 {
			s.emit(SeverityWarning, ElementDomain, id, "Domain '%s' has no concepts", id)
		}
	}
}
