// Package errors provides coded, actionable error messages for poolserve's
// command line and configuration layer.
//
// # Error Codes
//
// Each error has a unique code that maps to a category, a short message and a
// longer explanation:
//
//   - E100-E199: configuration errors
//   - E200-E299: server errors
//
// # Usage
//
//	err := errors.New("E102").
//	    WithDetail("threads is 0 in poolserve.json").
//	    WithSuggestion("Set threads to 1 or more")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E102: Invalid thread count
//	//
//	//   threads is 0 in poolserve.json
//	//
//	//   Hint: Set threads to 1 or more
package errors
