/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package result decodes JSON values out of model responses.

Models asked for JSON still wrap it in markdown fences, prefix it with prose, or
trail it with commentary. Decode handles all three without string slicing
between the first and last brace: it strips fences, then streams candidate
values with a json.Decoder starting at each plausible value start until one
decodes into the target type.

	type verdict struct {
		Score     float64 `json:"score"`
		Reasoning string  `json:"reasoning"`
	}

	v, err := result.Decode[verdict]("Sure! ```json\n{\"score\": 0.8}\n``` Hope that helps.")

A response that holds no decodable value yields an error wrapping ErrNoJSON.
*/
package result
