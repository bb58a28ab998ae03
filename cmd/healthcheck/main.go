// main.go
//
// Versioned, soft-deletable hierarchical node store for the jam-build inventory tool
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of jam-build-nodedb.
// jam-build-nodedb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// jam-build-nodedb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with jam-build-nodedb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/localnerve/jam-build-nodedb/internal/config"
	"github.com/localnerve/jam-build-nodedb/internal/database"
	"github.com/localnerve/jam-build-nodedb/internal/events"
	"github.com/localnerve/jam-build-nodedb/internal/logger"
	"github.com/localnerve/jam-build-nodedb/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	quiet := logger.NewNop()

	db, err := database.Connect(cfg, quiet)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	publisher := events.NewNoop()
	if cfg.RedisAddr != "" {
		publisher, err = events.NewRedis(quiet, cfg.RedisAddr, cfg.RedisChannel)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
	}
	defer publisher.Close()

	result := services.NewHealthChecker(cfg, db, publisher, quiet).Check(context.Background())

	// Output result as JSON
	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal health check result: %v", err)
	}

	fmt.Println(string(output))

	// Exit with appropriate code
	if result.Status != "healthy" {
		os.Exit(1)
	}
	os.Exit(0)
}
