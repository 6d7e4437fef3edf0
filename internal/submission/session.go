package submission

// Session is the transient state of one in-progress bill submission.
// It is an immutable value: every transition replaces the whole session
// under the controller's lock, so readers always observe a consistent
// snapshot.
type Session struct {
	// BillID is the store key returned by the first successful receipt
	// upload; empty until then.
	BillID string

	// FileURL and FileName describe the uploaded receipt; empty until an
	// upload succeeds and cleared again when a later selection is
	// rejected or its upload fails.
	FileURL  string
	FileName string

	// ErrorText mirrors the inline message currently shown on the file
	// input; empty when no error is displayed.
	ErrorText string

	// selection is the file-selection sequence number the receipt fields
	// belong to. An upload result whose selection was superseded is
	// discarded instead of overwriting newer state.
	selection uint64
}

// withReceipt returns the session with the uploaded receipt recorded and
// any prior error cleared.
func (s Session) withReceipt(billID, fileURL, fileName string, selection uint64) Session {
	s.BillID = billID
	s.FileURL = fileURL
	s.FileName = fileName
	s.ErrorText = ""
	s.selection = selection
	return s
}

// withError returns the session with the receipt fields cleared and the
// inline error recorded. The bill key survives: a failed re-upload does
// not orphan a record the store already opened.
func (s Session) withError(text string, selection uint64) Session {
	s.FileURL = ""
	s.FileName = ""
	s.ErrorText = text
	s.selection = selection
	return s
}

// withoutError returns the session with the inline error cleared.
func (s Session) withoutError(selection uint64) Session {
	s.ErrorText = ""
	s.selection = selection
	return s
}
