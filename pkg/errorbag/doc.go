// Package errorbag holds validation messages keyed by field name.
//
// A Bag is the error half of a form: the server reports failures as a
// mapping of field names to lists of messages, and the bag answers the
// questions a UI asks of that mapping.
//
//	bag := errorbag.New()
//	bag.Record(map[string][]string{
//	    "email": {"The email field is required."},
//	})
//
//	if bag.Has("email") {
//	    msg, _ := bag.First("email")
//	    fmt.Println(msg)
//	}
//
// A field with no entry, or an entry with zero messages, is error-free.
// All methods are safe for concurrent use.
package errorbag
