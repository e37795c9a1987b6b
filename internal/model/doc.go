// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat messages and models.
//
// # Key Types
//
//   - Role: Message role enumeration (system, user, assistant)
//   - Message: Single chat turn in the chat-completions wire shape
//   - Descriptor: A model id with its display label
//   - Registry: The Auto sentinel plus the Fast, Smart and Code models
//
// # Usage
//
//	reg := model.DefaultRegistry()
//	history := []model.Message{model.NewSystemMessage(profile)}
//	history = append(history, model.NewUserMessage("hello"))
//	fmt.Println(reg.DisplayName(reg.Code.ID))
package model
