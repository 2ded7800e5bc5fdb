package capacity

import "context"

// multiRecorder fans a calibration record out to several sinks.
type multiRecorder []Recorder

// MultiRecorder combines recorders into one. Nil entries are skipped;
// when no recorder remains the result is nil, which the estimator
// treats as recording disabled.
func MultiRecorder(recorders ...Recorder) Recorder {
	var rs multiRecorder
	for _, r := range recorders {
		if r != nil {
			rs = append(rs, r)
		}
	}
	if len(rs) == 0 {
		return nil
	}
	return rs
}

// RecordCalibration delivers the record to every sink. All sinks are
// attempted; the first error is returned.
func (m multiRecorder) RecordCalibration(ctx context.Context, rec CalibrationRecord) error {
	var first error
	for _, r := range m {
		if err := r.RecordCalibration(ctx, rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}
