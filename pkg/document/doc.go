// Package document adapts a host text-editing widget to a sum rope.
//
// The rope in pkg/sumrope never stores line text; it stores RLEGroups
// derived from it. Something has to own the actual text, feed the rope
// RLEGroups for the lines that changed, and answer the char/byte/visual
// queries an editor surface needs above the rope's line-and-offset
// vocabulary. That's this package's entire job: no tree logic lives here.
package document
