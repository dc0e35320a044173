// Package models defines the domain types shared by the session, navigation, and list layers.
//
// The package contains two categories of types:
//
// 1. Session types: what the device knows about the signed-in user
//   - [Identity] : Remote identity handle issued by the identity provider
//   - [State] : Position of the session in the authentication state machine
//
// 2. List types: user-authored records kept in local storage
//   - [CollectionKind] : Discriminator selecting the store and ordering rule (NOTE or TASK)
//   - [ListRecord] : A single append-only record with a storage-assigned id
//
// Notes are listed newest-first while tasks keep insertion order. The asymmetry is intentional.
package models
