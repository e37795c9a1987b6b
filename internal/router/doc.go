// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package router picks the model and temperature for each prompt.
//
// Routing is driven by two keyword tables kept as data (CodePatterns and
// CreativePatterns) and a length threshold:
//
//	code table     -> Code model,  temperature 0.1
//	creative table -> Smart model, temperature 0.9
//	length > limit -> Smart model, temperature 0.7
//	otherwise      -> Fast model,  temperature 0.5
//
// The order is significant: "write a function" is code, not creative.
//
// # Usage
//
//	r := router.New(model.DefaultRegistry(), router.DefaultFastLimit)
//	d := r.Route(prompt, router.Override{Model: opts.Model, Temperature: opts.Temperature})
//	fmt.Println(d.Model, d.Temperature)
package router
