// Package harness runs end-to-end signature scenarios.
//
// A scenario declares microcode functions and a sequence of steps that
// drive a matcher session through them: adding signatures, matching,
// saving and loading signature files, and syncing with a signature
// database. Each step can state the outcome it expects, and assertions
// check the final state of the session.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	session: fixed-session-id
//	functions:
//	  - name: counter
//	    entry: 0x401000
//	    blocks:
//	      - - op: 4
//	          l: {kind: num, size: 4}
//	          d: {kind: reg, size: 4}
//	steps:
//	  - add: counter
//	  - match: counter_copy
//	    expect: {name: counter}
//	  - save: out.msig
//	    expect: {count: 1}
//	  - reset: true
//	  - load: out.msig
//	assertions:
//	  - type: set_size
//	    count: 1
//	  - type: set_contains
//	    name: counter
//
// # Step Types
//
//   - add: sign a function and insert it; expect.error may be "invalid"
//     or "duplicate"
//   - match: look a function up; expect.name or expect.miss
//   - save / load: write or read a signature file in the scenario's
//     scratch directory; expect.count checks the number of lines
//   - write: create a raw signature file from content
//   - reset: start a new session, as after a restart
//   - persist / restore: sync the session with an in-memory database
//
// # Assertion Types
//
//   - set_size: the session holds exactly count signatures
//   - set_contains: a signature with the given name is present
//   - file_lines: a saved file has exactly count lines
//
// # Deterministic Testing
//
// Every scenario runs with a fixed session ID, a scratch directory of its
// own and an in-memory SQLite database, so traces are identical across
// runs and can be compared against golden files.
package harness
