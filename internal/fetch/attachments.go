package fetch

// Attachment is one request-supplied file.
type Attachment struct {
	Name      string
	Content   []byte
	MediaType string
}

// AttachmentTable is a read-only view of the attachments supplied with a request.
// The zero value is an empty table.
type AttachmentTable struct {
	byName map[string]Attachment
}

// NewAttachmentTable indexes attachments by name. A later attachment with the
// same name replaces an earlier one.
func NewAttachmentTable(attachments ...Attachment) AttachmentTable {
	if len(attachments) == 0 {
		return AttachmentTable{}
	}
	byName := make(map[string]Attachment, len(attachments))
	for _, a := range attachments {
		byName[a.Name] = a
	}
	return AttachmentTable{byName: byName}
}

// Lookup returns the attachment registered under name.
func (t AttachmentTable) Lookup(name string) (Attachment, bool) {
	a, ok := t.byName[name]
	return a, ok
}

// Len returns the number of attachments.
func (t AttachmentTable) Len() int { return len(t.byName) }
