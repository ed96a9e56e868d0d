// Package config loads poolserve.json.
//
// # Configuration File Structure
//
//	{
//	  "address": "127.0.0.1:7878",
//	  "threads": 20,
//	  "maxRequestBytes": 8192,
//	  "readTimeout": "5s",
//	  "writeTimeout": "5s",
//	  "content": {
//	    "backend": "fs",
//	    "dir": "content",
//	    "allowDotSegments": false,
//	    "s3": {
//	      "bucket": "my-site",
//	      "prefix": "public/",
//	      "region": "us-east-1",
//	      "endpoint": "http://127.0.0.1:9000",
//	      "usePathStyle": true
//	    }
//	  },
//	  "admin": {
//	    "address": "127.0.0.1:9090",
//	    "eventInterval": "1s"
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  }
//	}
//
// Every field is optional. A missing file yields the defaults.
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sc, err := cfg.ServerConfig(logger, metrics.New())
package config
