package sensor

import "envsensor-go/errcode"

// Result is the outcome class of a vendor driver call. Backends classify
// their driver's errors into a Result and report it through ResultStatus.
type Result int8

const (
	ResultOK Result = iota
	ResultNotFound
	ResultNull
	ResultCommFail
	ResultSelfTest
	ResultOther
)

// ResultStatus is the fixed driver-result to status table.
func ResultStatus(r Result) errcode.Status {
	switch r {
	case ResultOK:
		return errcode.Success
	case ResultNotFound:
		return errcode.NotFound
	case ResultNull:
		return errcode.Null
	case ResultCommFail:
		return errcode.Busy
	case ResultSelfTest:
		return errcode.SelfTest
	}
	return errcode.Internal
}

// Classifier maps a driver error to a Result. nil must map to ResultOK.
type Classifier func(error) Result

// StatusOf classifies err and returns its status.
func StatusOf(err error, classify Classifier) errcode.Status {
	if err == nil {
		return errcode.Success
	}
	return ResultStatus(classify(err))
}
