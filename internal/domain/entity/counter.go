package entity

// Counter consecutivo por organización. Solo se incrementa; nunca se reinicia.
type Counter struct {
	OrgID string
	Seq   int64
}
