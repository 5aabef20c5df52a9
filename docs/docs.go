// Package docs registers the OpenAPI description served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Регистрация пользователя",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/services.RegisterInput"}}
                ],
                "responses": {
                    "201": {"description": "Пользователь создан"},
                    "409": {"description": "Email или username заняты"},
                    "422": {"description": "Ошибка валидации"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Вход",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/services.LoginInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.AuthResult"}},
                    "401": {"description": "Неверные учетные данные"}
                }
            }
        },
        "/auth/profile": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Профиль текущего пользователя",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.User"}},
                    "401": {"description": "Неавторизован"}
                }
            }
        },
        "/api/tournaments": {
            "get": {
                "tags": ["tournaments"],
                "summary": "Список турниров",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "in": "query", "name": "limit"},
                    {"type": "integer", "in": "query", "name": "offset"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Tournament"}}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["tournaments"],
                "summary": "Создать турнир вместе с сетками",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/services.CreateTournamentInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/services.AssemblyResult"}},
                    "422": {"description": "Ошибка валидации"}
                }
            }
        },
        "/api/tournaments/latest": {
            "get": {
                "tags": ["tournaments"],
                "summary": "Последний созданный турнир",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Tournament"}},
                    "404": {"description": "Турниров нет"}
                }
            }
        },
        "/api/tournaments/{tournamentID}": {
            "get": {
                "tags": ["tournaments"],
                "summary": "Турнир по ID",
                "produces": ["application/json"],
                "parameters": [{"type": "integer", "in": "path", "name": "tournamentID", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Tournament"}},
                    "404": {"description": "Турнир не найден"}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["tournaments"],
                "summary": "Частично обновить турнир",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "in": "path", "name": "tournamentID", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/services.UpdateTournamentInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Tournament"}},
                    "404": {"description": "Турнир не найден"}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["tournaments"],
                "summary": "Удалить турнир",
                "parameters": [{"type": "integer", "in": "path", "name": "tournamentID", "required": true}],
                "responses": {
                    "204": {"description": "Удалено"},
                    "404": {"description": "Турнир не найден"}
                }
            }
        },
        "/api/tournaments/{tournamentID}/image": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["tournaments"],
                "summary": "Загрузить баннер турнира",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"type": "integer", "in": "path", "name": "tournamentID", "required": true},
                    {"type": "file", "in": "formData", "name": "image", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Tournament"}}}
            }
        },
        "/api/tournaments/{tournamentID}/slider": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["tournaments"],
                "summary": "Загрузить изображения слайдера",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"type": "integer", "in": "path", "name": "tournamentID", "required": true},
                    {"type": "file", "in": "formData", "name": "images", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Tournament"}}}
            }
        },
        "/api/tournaments/{tournamentID}/pdf": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["tournaments"],
                "summary": "Загрузить регламент (PDF)",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"type": "integer", "in": "path", "name": "tournamentID", "required": true},
                    {"type": "file", "in": "formData", "name": "pdf", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Tournament"}}}
            }
        },
        "/participants": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["participants"],
                "summary": "Список заявок",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "in": "query", "name": "search"},
                    {"type": "integer", "in": "query", "name": "page"},
                    {"type": "integer", "in": "query", "name": "limit"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/services.ParticipantPage"}}}
            },
            "post": {
                "tags": ["participants"],
                "summary": "Зарегистрировать участника (solitaire, team или join)",
                "consumes": ["application/json", "multipart/form-data"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/services.RegisterParticipantInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Participant"}},
                    "400": {"description": "Неверный тип, неизвестный код, команда заполнена"},
                    "409": {"description": "Код приглашения занят"},
                    "422": {"description": "Ошибка валидации"},
                    "429": {"description": "Слишком много запросов"}
                }
            }
        },
        "/participants/{participantID}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["participants"],
                "summary": "Заявка по ID",
                "parameters": [{"type": "integer", "in": "path", "name": "participantID", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Participant"}},
                    "404": {"description": "Не найдена"}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["participants"],
                "summary": "Удалить заявку",
                "parameters": [{"type": "integer", "in": "path", "name": "participantID", "required": true}],
                "responses": {
                    "204": {"description": "Удалено"},
                    "404": {"description": "Не найдена"}
                }
            }
        }
    },
    "definitions": {
        "services.RegisterInput": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"}
            }
        },
        "services.LoginInput": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "rememberMe": {"type": "boolean"}
            }
        },
        "services.AuthResult": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "expires_at": {"type": "string"},
                "user": {"$ref": "#/definitions/models.User"}
            }
        },
        "models.User": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "username": {"type": "string"},
                "email": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "role": {"type": "string", "enum": ["admin", "organizer", "player"]},
                "last_login_at": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "services.BracketSpec": {
            "type": "object",
            "properties": {
                "bracketName": {"type": "string"},
                "bracketStartDate": {"type": "string"},
                "bracketStartTime": {"type": "string"},
                "matchCheckIn": {"type": "string"},
                "bracketStyle": {"type": "string"},
                "enableThirdPlace": {"type": "boolean"},
                "bracketSize": {"type": "integer"}
            }
        },
        "services.CreateTournamentInput": {
            "type": "object",
            "properties": {
                "basics": {
                    "type": "object",
                    "properties": {
                        "game": {"type": "string"},
                        "name": {"type": "string"},
                        "start_date": {"type": "string"}
                    }
                },
                "info": {
                    "type": "object",
                    "properties": {
                        "description": {"type": "string"},
                        "rules": {"type": "string"},
                        "prizes": {"type": "string"}
                    }
                },
                "settings": {
                    "type": "object",
                    "properties": {
                        "format_category": {"type": "string"},
                        "format": {"type": "string"},
                        "check_in": {"type": "boolean"},
                        "check_in_date": {"type": "string"},
                        "max_participants": {"type": "integer"},
                        "allow_teams": {"type": "boolean"},
                        "max_team_members": {"type": "integer"},
                        "public_results": {"type": "boolean"}
                    }
                },
                "resources": {
                    "type": "object",
                    "properties": {"whatsapp_link": {"type": "string"}}
                },
                "brackets": {"type": "array", "items": {"$ref": "#/definitions/services.BracketSpec"}}
            }
        },
        "services.UpdateTournamentInput": {
            "type": "object",
            "properties": {
                "game": {"type": "string"},
                "name": {"type": "string"},
                "start_date": {"type": "string"},
                "description": {"type": "string"},
                "rules": {"type": "string"},
                "prizes": {"type": "string"},
                "format_category": {"type": "string"},
                "format": {"type": "string"},
                "check_in": {"type": "boolean"},
                "check_in_date": {"type": "string"},
                "max_participants": {"type": "integer"},
                "allow_teams": {"type": "boolean"},
                "max_team_members": {"type": "integer"},
                "public_results": {"type": "boolean"},
                "whatsapp_link": {"type": "string"}
            }
        },
        "services.AssemblyResult": {
            "type": "object",
            "properties": {
                "tournament": {"$ref": "#/definitions/models.Tournament"},
                "report": {
                    "type": "object",
                    "properties": {
                        "start_date_defaulted": {"type": "boolean"},
                        "check_in_date_dropped": {"type": "boolean"},
                        "defaulted_fields": {"type": "array", "items": {"type": "string"}},
                        "brackets": {
                            "type": "array",
                            "items": {
                                "type": "object",
                                "properties": {
                                    "index": {"type": "integer"},
                                    "bracket_id": {"type": "integer"},
                                    "name_defaulted": {"type": "boolean"},
                                    "style_defaulted": {"type": "boolean"},
                                    "start_defaulted": {"type": "boolean"},
                                    "size_defaulted": {"type": "boolean"},
                                    "error": {"type": "string"}
                                }
                            }
                        }
                    }
                }
            }
        },
        "models.Bracket": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "tournament_id": {"type": "integer"},
                "name": {"type": "string"},
                "start_date": {"type": "string"},
                "match_check_in": {"type": "string"},
                "style": {"type": "string", "enum": ["single", "double"]},
                "third_place_match": {"type": "boolean"},
                "size": {"type": "integer"}
            }
        },
        "models.Tournament": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "game": {"type": "string"},
                "name": {"type": "string"},
                "start_date": {"type": "string"},
                "description": {"type": "string"},
                "rules": {"type": "string"},
                "prizes": {"type": "string"},
                "format_category": {"type": "string"},
                "format": {"type": "string"},
                "check_in": {"type": "boolean"},
                "check_in_date": {"type": "string"},
                "max_participants": {"type": "integer"},
                "allow_teams": {"type": "boolean"},
                "max_team_members": {"type": "integer"},
                "public_results": {"type": "boolean"},
                "banner_image": {"type": "string"},
                "rules_pdf": {"type": "string"},
                "slider_images": {"type": "array", "items": {"type": "string"}},
                "whatsapp_link": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"},
                "brackets": {"type": "array", "items": {"$ref": "#/definitions/models.Bracket"}}
            }
        },
        "models.Team": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "invitation_code": {"type": "string"},
                "tournament_id": {"type": "integer"},
                "founder_participant_id": {"type": "integer"},
                "name": {"type": "string"},
                "tag": {"type": "string"},
                "description": {"type": "string"},
                "is_public": {"type": "boolean"},
                "logo_path": {"type": "string"},
                "member_count": {"type": "integer"},
                "created_at": {"type": "string"}
            }
        },
        "models.Participant": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "tournament_id": {"type": "integer"},
                "username": {"type": "string"},
                "rank": {"type": "string"},
                "platform": {"type": "string", "enum": ["pc", "ps5", "xbox", "nintendo", "mobile"]},
                "registration_type": {"type": "string", "enum": ["solitaire", "team", "join"]},
                "invitation_code": {"type": "string"},
                "team_id": {"type": "integer"},
                "current_team_size": {"type": "integer"},
                "contact_info": {"type": "string"},
                "consent_document": {"type": "string"},
                "created_at": {"type": "string"},
                "team": {"$ref": "#/definitions/models.Team"}
            }
        },
        "services.RegisterParticipantInput": {
            "type": "object",
            "properties": {
                "tournamentId": {"type": "integer"},
                "username": {"type": "string"},
                "rank": {"type": "string"},
                "platform": {"type": "string"},
                "registration_type": {"type": "string", "enum": ["solitaire", "team", "join"]},
                "teamName": {"type": "string"},
                "teamTag": {"type": "string"},
                "teamDescription": {"type": "string"},
                "isPublic": {"type": "boolean"},
                "contactInfo": {"type": "string"},
                "discordId": {"type": "string"},
                "invitationCode": {"type": "string"}
            }
        },
        "services.ParticipantPage": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/models.Participant"}},
                "total": {"type": "integer"},
                "page": {"type": "integer"},
                "limit": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Tournament Registration API",
	Description:      "Tournaments with brackets, participant registration and team formation by invitation code.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
