// Package providers assembles the tool providers served by scenemcp.
//
// Scene providers contribute capabilities, each exposed by the dispatcher in
// a handle form and a _by_path form:
//   - inspect: analyze_stage, list_prims, visualize_scene_graph
//   - geometry: define_prim, create_primitive, create_mesh, create_reference, set_transform
//   - materials: create_material, bind_material, create_texture_material, update_material
//   - physics: setup_physics_scene, add_rigid_body, update_rigid_body, remove_rigid_body,
//     add_collision, remove_collision, create_joint, configure_joint, remove_joint
//   - animation: set_keyframe, create_animation, create_transform_animation
//
// The system provider contributes single-form commands and journals calls.
//
// Example Usage:
//
//	d := tools.New(tools.Config{Registry: reg, Engine: docstore.New()})
//	sys := system.NewProvider(version, reg, metrics)
//	if err := providers.RegisterAll(d, sys); err != nil {
//		return err
//	}
package providers
