// Package transfer converts catalogues and their events to and from the
// JSON export document.
//
// A document looks like:
//
//	{
//	  "catalogues": [{"attributes":{},"author":"...","events":["<uuid>"],"name":"...","tags":[],"uuid":"..."}],
//	  "events": [{"attributes":{"k":{"type":"int","value":1}},"author":"...","start":"...","stop":"...","tags":[],"uuid":"..."}],
//	  "version": 1
//	}
//
// Export writes canonical JSON (keys sorted by UTF-16 code units, no HTML
// escaping, NFC strings), so the same content always yields the same bytes.
// Decode checks the document against the embedded CUE schema before
// rebuilding model entities.
package transfer
