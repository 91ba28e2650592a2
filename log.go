package whidl

import "github.com/sirupsen/logrus"

// log is the package-level logger used for ambient diagnostics (an
// "elaborated" Debug message and a "cache hit" Trace message). It defaults
// to logrus's standard logger but can be replaced wholesale with
// SetLogger, so embedding applications can redirect or silence it without
// the core packages reaching for a global singleton on every call site.
var log logrus.FieldLogger = logrus.StandardLogger()

// SetLogger overrides the logger used for ambient diagnostics across the
// package. Passing nil restores the default standard logger.
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		log = logrus.StandardLogger()
		return
	}
	log = l
}
