// Package search keeps the results region of a search page in step with the
// filter form.
//
// # Overview
//
// Every user interaction that can change the result set ends up here:
// typing in the free-text box, moving a range slider, ticking a checkbox,
// choosing a sort order or page size, clicking a pagination link or
// submitting the form. The Orchestrator decides when a request is sent,
// which request wins when several overlap, and what happens to the page
// when a request ends.
//
// # Key Features
//
//   - Debounced triggers with two windows: a long one for typing and a
//     short one for controls
//   - At most one request in flight; a newer request cancels the older one
//   - Duplicate suppression for unchanged form state and identical
//     in-flight queries
//   - Three explicit outcomes per request: success, cancelled, error
//   - History replacement with the canonical URL after every successful
//     render
//   - Parameter validation for server-side renders (ParseParams)
//
// # Architecture
//
// The orchestrator owns no I/O of its own. It is wired to small interfaces:
//
//   - Searcher: runs the HTTP request (client.Client)
//   - Renderer: redraws results, summary and pagination
//   - History: replaces the browser URL
//   - Alerter: shows one alert per failed request
//   - QueryBuilder: serializes the form (query.Builder)
//   - Loader: toggles the busy indicator (optional)
//
// Each dispatch gets a sequence token and a cancel func. When a response
// arrives the token is compared with the request currently in flight under
// the orchestrator lock; only the current request may render, and the
// render runs under that same lock.
//
// # Usage Examples
//
// Wiring an orchestrator for one page session:
//
//	orch := search.New(apiClient, renderer, history, alerter, builder, search.Options{
//		Endpoint: "/api/properties/search/",
//		PagePath: "/search/",
//	})
//	defer orch.Close()
//
//	// slider moved
//	orch.FilterChanged("price")
//	// pagination link clicked
//	_ = orch.Navigate("/search/?q=flat&page=3")
//
// Validating a browser query for the first render:
//
//	params, err := search.ParseParams(r.URL.RawQuery, search.ParamOptions{})
//	if err != nil {
//		// invalid escape sequence
//	}
//	res, err := apiClient.Search(ctx, endpoint, params.Query)
//
// # Search Behavior
//
//   - Schedule restarts the debounce timer; only the last trigger in a
//     window produces a request
//   - When the timer fires and the serialized form equals the query of the
//     last successful render, nothing is sent
//   - Dispatch, Submit and Navigate bypass the debounce window
//   - A cancelled request renders nothing, touches no history and raises no
//     alert
//   - A failed request leaves the previous results on screen and raises one
//     alert
//   - Close stops the timer and cancels the request in flight; the
//     orchestrator ignores every call afterwards
package search
