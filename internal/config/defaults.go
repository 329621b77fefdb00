package config

const (
	DefaultListPath        = "transcode_list.txt"
	DefaultBaseDir         = "/data"
	DefaultFailureLogPath  = "transcode_failures.log"
	DefaultReportsDir      = "reports"
	DefaultIdleWaitSeconds = 0.5
	DefaultHWAccel         = "cuda"
	DefaultVideoCodec      = "hevc_nvenc"
	DefaultPreset          = "p4"
	DefaultQuality         = 28

	BackoffPolicyFixed       = "fixed"
	BackoffPolicyExponential = "exponential"
	DefaultBackoffPolicy     = BackoffPolicyFixed
)

// DefaultInefficientCodecs returns the codecs a fresh install treats as
// worth re-encoding.
func DefaultInefficientCodecs() []string {
	return []string{"h264", "mpeg4", "vc1"}
}
