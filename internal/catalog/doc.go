// Package catalog resolves scanned cards to Spotify tracks through per-deck CSV catalogs.
//
// Each deck is a file named "<prefix>-<deck id>.csv" with the columns
//
//	cardId,title,artist,year,trackLink
//
// and a header row. Decks are fetched lazily through a [Fetcher] (HTTP or a local directory), parsed strictly by
// [Parse] and cached by the [Resolver] for the life of the process, since deck files never change.
//
// Resolution errors:
//   - [shared.ErrCatalogFetch] : the deck could not be fetched or parsed
//   - [shared.ErrCardNotFound] : no row carries the card id
//   - [shared.ErrNoPlayableLink] : the matching row has no Spotify track link
package catalog
