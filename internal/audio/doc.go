// package audio inspects and decorates downloaded audio files
//
// The quality gate reads sizes and durations (MP3, FLAC, M4A), the tagger embeds
// title/artist/album, cover art and lyrics, and lyrics can be written as an LRC sidecar.
package audio
