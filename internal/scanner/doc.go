// package scanner feeds decoded QR strings into playback.
//
// A [Source] yields decodes while scanning is active. [Bridge] filters them down to card links, resolves each
// card against its deck catalog and hands the entry to the playback controller.
package scanner
