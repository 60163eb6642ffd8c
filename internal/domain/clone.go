package domain

import "time"

// Clone returns a deep copy of the deal so a mutation can be staged and
// discarded on failure.
func (d Deal) Clone() Deal {
	out := d
	if d.Parties != nil {
		out.Parties = make([]Party, len(d.Parties))
		for i, p := range d.Parties {
			if p.SharePercent != nil {
				v := *p.SharePercent
				p.SharePercent = &v
			}
			out.Parties[i] = p
		}
	}
	if d.Steps != nil {
		out.Steps = make([]Step, len(d.Steps))
		for i, s := range d.Steps {
			out.Steps[i] = s.Clone()
		}
	}
	if d.Documents != nil {
		out.Documents = make([]Document, len(d.Documents))
		for i, doc := range d.Documents {
			out.Documents[i] = doc.Clone()
		}
	}
	if d.Audit != nil {
		out.Audit = append(make([]AuditEntry, 0, len(d.Audit)), d.Audit...)
	}
	if d.Notifications != nil {
		out.Notifications = make([]Notification, len(d.Notifications))
		for i, n := range d.Notifications {
			n.ReadAt = cloneTime(n.ReadAt)
			out.Notifications[i] = n
		}
	}
	return out
}

func (s Step) Clone() Step {
	if s.RequiredDocs != nil {
		s.RequiredDocs = append(make([]DocType, 0, len(s.RequiredDocs)), s.RequiredDocs...)
	}
	if s.Notes != nil {
		s.Notes = append(make([]string, 0, len(s.Notes)), s.Notes...)
	}
	s.StartedAt = cloneTime(s.StartedAt)
	s.CompletedAt = cloneTime(s.CompletedAt)
	return s
}

func (doc Document) Clone() Document {
	if doc.ExtractedFields != nil {
		fields := make(map[string]string, len(doc.ExtractedFields))
		for k, v := range doc.ExtractedFields {
			fields[k] = v
		}
		doc.ExtractedFields = fields
	}
	return doc
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
