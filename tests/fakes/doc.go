// Package fakes provides test doubles for opscreds interfaces.
//
// Fakes are manually implemented (not generated) to provide precise control
// over test behavior.
//
// Usage:
//
//	inv := fakes.NewFakeInventory("ASA").
//	    WithServers("internal-acme-staging-web-03", "client-shop-production-web-00").
//	    WithAccount("ops", "jdoe")
//	chooser := fakes.NewFakeChooser("acme")
//	finder := server.NewFinder(inv, chooser, &fakes.FakeNotifier{})
package fakes
