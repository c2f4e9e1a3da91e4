package handlers

// AppHandlers holds every HTTP handler of the console.
type AppHandlers struct {
	SessionHandler    *SessionHandler
	ListHandler       *ListHandler
	FormHandler       *FormHandler
	AttachmentHandler *AttachmentHandler
	ConfirmHandler    *ConfirmHandler
	ExportHandler     *ExportHandler
	ReportHandler     *ReportHandler
	PreviewHandler    *PreviewHandler
}
