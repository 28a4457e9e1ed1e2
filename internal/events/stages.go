package events

// Well-known stage names shared by the pipeline, the event stream, and
// ledger reconciliation.
const (
	StageItem             = "item"
	StageFetchMetadata    = "fetch-metadata"
	StageClearArtifacts   = "clear-prior-artifacts"
	StageLocateAudio      = "locate-source-audio"
	StageAcquireAudio     = "acquire-audio"
	StageTranscribe       = "transcribe"
	StageCorrect          = "correct-transcript"
	StageTranslateA       = "translate-a"
	StageTranslateB       = "translate-b"
	StagePublishPrimary   = "publish-primary"
	StagePublishSecondary = "publish-secondary"
)
