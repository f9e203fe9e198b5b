// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: tag_filter
//	description: "Events are selected by tag"
//	steps:
//	  - create_event:
//	      label: e1
//	      start: 2024-01-01T00:00:00Z
//	      stop: 2024-01-01T01:00:00Z
//	      author: alice
//	      fields: { quality: 3, observed: "@2024-01-01T00:30:00Z" }
//	      tags: [mms, bow-shock]
//	  - create_catalogue: { label: c1, name: crossings, author: alice }
//	  - add: { catalogue: c1, events: [e1] }
//	  - session:
//	      steps:
//	        - update: { label: e1, set: { quality: 5 } }
//	      fail: "abandon the edit"
//	    expect_error: error
//	assertions:
//	  - type: events
//	    filter: "'mms' in tags and quality == 3"
//	    expect: [e1]
//	  - type: event_count
//	    catalogue: c1
//	    count: 1
//
// Each step holds exactly one operation: create_event, create_catalogue,
// add, update, session, export, import or discard. Only create, add and
// update run inside a session. A string field value starting with "@" is
// read as a time.
//
// # Outcomes
//
// Every executed step is traced with its outcome: "ok", or the class of the
// error it returned (validation, not_found, commit, session, panic, error).
// A step whose outcome differs from its expect_error fails the result.
// Unknown labels abort the run with a ScenarioError instead.
//
// # Assertion Types
//
//   - events: the labels of the matching events, in creation order
//   - catalogues: the labels of the matching catalogues, in creation order
//   - event_count, catalogue_count: the number of matches
//
// Event assertions may be restricted to the members of a catalogue.
//
// # Deterministic Testing
//
// Each run uses a private in-memory database and sequential identities,
// so Snapshot returns the same bytes for the same scenario every time.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/tag_filter.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
