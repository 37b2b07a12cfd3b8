// Package main ClusterHub API
//
//	@title						ClusterHub API
//	@version					1.0
//	@description				Project workspaces, investor invitations and collaboration.
//
//	@BasePath					/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"
//
//	@tag.name					Auth
//	@tag.description			Registration, login and session
//
//	@tag.name					User
//	@tag.description			User directory and administration
//
//	@tag.name					Project
//	@tag.description			Projects and investor access
//
//	@tag.name					Invitation
//	@tag.description			Investor invitation lifecycle
//
//	@tag.name					Stage
//	@tag.description			Project stages
//
//	@tag.name					Task
//	@tag.description			Stage tasks
//
//	@tag.name					Comment
//	@tag.description			Task discussion
//
//	@tag.name					File
//	@tag.description			Project file storage
//
//	@tag.name					Webhook
//	@tag.description			Identity provider webhooks
package main
