// Package form tracks the state of a single form on the client side and
// submits it to a remote endpoint.
//
// # Overview
//
// A Form is built from an initial set of fields. The field set is fixed for
// the life of the form: Get, Set and Has only see the declared names.
//
//	f := form.New(form.Fields{"name": "", "age": 0},
//	    form.WithClient(transport.NewHTTPClient(transport.WithBaseURL(api))),
//	)
//
//	f.Set("name", "Al")
//
//	resp, err := f.Post(ctx, "/users")
//	if err != nil {
//	    if f.Errors().Has("name") {
//	        msg, _ := f.Errors().First("name")
//	        show(msg)
//	    }
//	    return err
//	}
//
// # Submission
//
// Submit moves the form through Idle → Submitting → Succeeded or Failed.
// On failure the server's field messages, when present, are recorded into
// the form's error bag and the original error is returned unchanged. A
// failure without a structured body (network error, 500 page) leaves the
// bag empty.
//
// When EnableClearOnSubmit has been called, a successful submit also resets
// every field to the empty string.
//
// # Overlapping submits
//
// Each Submit takes a generation number. Only the most recent submit may
// update the status flags and the error bag when it completes; an earlier
// submit that finishes late still returns its own result to its caller.
package form
