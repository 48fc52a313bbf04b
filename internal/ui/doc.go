// Package ui implements the live queue monitor using bubbletea's Elm architecture.
//
// The monitor has two views:
//  1. [SessionListView] : every session with its status and counters
//  2. [ItemListView] : the items of the selected session
//
// The [Model] implements bubbletea's Init/Update/View pattern, receiving messages via the Msg union type.
// It refreshes the snapshot every second and whenever the queue manager reports an event, so progress shows up
// without polling the database more often than needed.
//
// Keyboard bindings: p pause, r resume, x retry failed, d delete, c cancel item, enter/esc to move between views,
// q to quit. Help is displayed via charmbracelet/bubbles/help.
package ui
