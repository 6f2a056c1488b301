// Package serialization stores attribution maps in the SafeTensors format so
// they can be loaded by other tooling.
//
//	Format Structure:
//	  [8 bytes: Header Size (uint64 LE)]
//	  [Header: JSON, tensor name -> {dtype, shape, data_offsets}, plus __metadata__]
//	  [Tensor data: raw little-endian bytes, in name order]
//
// Example usage:
//
//	res, _ := reverse.Reverse(ctx, model, rules, cfg)
//	maps := map[string]*tensor.RawTensor{"x": res.Inputs[0]}
//	err := serialization.WriteFile("attribution.safetensors", maps, map[string]string{"run_id": res.RunID})
package serialization
